// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	jobqueue "github.com/veristep/veristep/internal/adapters/mq/queue"
	workerpool "github.com/veristep/veristep/internal/adapters/mq/worker"
	"github.com/veristep/veristep/internal/adapters/repository"
	"github.com/veristep/veristep/internal/domain/assignment"
	"github.com/veristep/veristep/internal/domain/idempotency"
	"github.com/veristep/veristep/internal/domain/lifecycle"
	"github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/internal/domain/scoring"
	"github.com/veristep/veristep/pkg/clock"
	"github.com/veristep/veristep/pkg/logger"
	"github.com/veristep/veristep/pkg/metrics"
)

// Operation names recorded on idempotency tokens.
const (
	opSubmitEvidence = "submit_evidence"
)

// Service wires the evidence pipeline: idempotent intake, lifecycle,
// validator assignment, scoring, and the re-assignment workers.
type Service struct {
	mu sync.RWMutex

	// Core components
	store       *repository.MemStore
	reviewQueue *repository.ReviewQueue
	guard       idempotency.Guard
	lifecycle   *lifecycle.Manager
	coordinator *assignment.Coordinator
	engine      *scoring.Engine
	jobs        *jobqueue.InMemoryQueue
	workers     *workerpool.Pool

	// Configuration
	workerCount       int
	queueSize         int
	tokenTTL          time.Duration
	sweepInterval     time.Duration
	expiryInterval    time.Duration
	requiredApprovals int
	assignPolicy      assignment.Policy
	scorePolicy       scoring.Policy

	clock clock.Clock

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of re-assignment workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the re-assignment queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTokenTTL sets the idempotency token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithSweepInterval sets how often expired tokens are swept.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.sweepInterval = d
		}
	}
}

// WithExpiryInterval sets how often overdue assignments are expired.
func WithExpiryInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.expiryInterval = d
		}
	}
}

// WithRequiredApprovals sets how many approving validations finalize
// evidence.
func WithRequiredApprovals(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.requiredApprovals = n
		}
	}
}

// WithAssignmentPolicy replaces the default assignment policy.
func WithAssignmentPolicy(p assignment.Policy) Option {
	return func(s *Service) {
		if len(p.SLA) > 0 {
			s.assignPolicy = p
		}
	}
}

// WithScoringPolicy replaces the default scoring policy.
func WithScoringPolicy(p scoring.Policy) Option {
	return func(s *Service) {
		s.scorePolicy = p
	}
}

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 4,
		queueSize:         10_000,
		tokenTTL:          24 * time.Hour,
		sweepInterval:     10 * time.Minute,
		expiryInterval:    5 * time.Minute,
		requiredApprovals: 1,
		assignPolicy:      assignment.DefaultPolicy(),
		scorePolicy:       scoring.DefaultPolicy(),
		clock:             clock.New(),
		stopCh:            make(chan struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting evidence validation service...")

	s.store = repository.NewMemStore()
	s.reviewQueue = repository.NewReviewQueue(ctx)
	s.engine = scoring.NewEngine(scoring.WithPolicy(s.scorePolicy))
	s.guard = idempotency.NewInMemoryGuard(
		idempotency.WithClock(s.clock),
		idempotency.WithDefaultTTL(s.tokenTTL),
	)
	s.lifecycle = lifecycle.NewManager(s.store,
		lifecycle.WithClock(s.clock),
	)
	s.jobs = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)
	s.coordinator = assignment.NewCoordinator(s.store,
		assignment.WithPolicy(s.assignPolicy),
		assignment.WithClock(s.clock),
		assignment.WithPrioritizer(s),
		assignment.WithRequeuer(s),
		assignment.WithEscalator(s.lifecycle),
	)

	s.workers = workerpool.NewPool(s.workerCount, s.jobs, s.coordinator, s.lifecycle,
		workerpool.WithMaxAttempts(s.assignPolicy.MaxReassignments),
	)
	s.workers.Start(ctx)

	go s.runMaintenance(ctx)

	s.started = true
	s.logger.Info(ctx, "evidence validation service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("tokenTTL", s.tokenTTL),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping evidence validation service...")

	if s.workers != nil {
		s.workers.Stop()
	}
	if s.jobs != nil {
		_ = s.jobs.Close()
	}

	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}

	s.started = false
	s.logger.Info(context.Background(), "evidence validation service stopped")
}

// runMaintenance drives the token sweep and assignment expiry tickers.
func (s *Service) runMaintenance(ctx context.Context) {
	sweep := time.NewTicker(s.sweepInterval)
	expire := time.NewTicker(s.expiryInterval)
	defer sweep.Stop()
	defer expire.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-sweep.C:
			n := s.guard.Sweep(ctx, s.clock.Now())
			metrics.UpdateTokenTableSize(s.guard.Size())
			if n > 0 {
				s.logger.Debug(ctx, "swept expired idempotency tokens", logger.Int("count", n))
			}
		case <-expire.C:
			n, err := s.coordinator.ExpireOverdue(ctx, s.clock.Now())
			if err != nil {
				s.logger.Error(ctx, "assignment expiry sweep failed", logger.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "expired overdue assignments", logger.Int("count", n))
			}
		}
	}
}

// SubmitEvidence stores new evidence behind the idempotency guard and
// places it on the review queue. Retries with the same token replay the
// original outcome without creating a second submission; the bool
// reports such a replay.
func (s *Service) SubmitEvidence(ctx context.Context, token string, in model.EvidenceSubmission) (model.Evidence, bool, error) {
	if in.UserID == "" || in.ChallengeID == "" {
		return model.Evidence{}, false, fmt.Errorf("%w: user and challenge are required", model.ErrValidation)
	}

	// An omitted token forfeits the dedup guarantee: the submission is
	// stored at-least-once without consulting the guard.
	if token == "" {
		ev, err := s.createEvidence(ctx, in)
		return ev, false, err
	}

	begin, err := s.guard.Begin(ctx, token, in.UserID, opSubmitEvidence, s.tokenTTL)
	if err != nil {
		return model.Evidence{}, false, err
	}
	if begin.Status == idempotency.StatusReplayed {
		var ev model.Evidence
		if err := json.Unmarshal([]byte(begin.Result.Data), &ev); err != nil {
			return model.Evidence{}, false, fmt.Errorf("cached submission result corrupt: %w", err)
		}
		return ev, true, nil
	}

	ev, err := s.createEvidence(ctx, in)
	if err != nil {
		// Let the client retry with the same token.
		s.guard.Release(ctx, token)
		return model.Evidence{}, false, err
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return model.Evidence{}, false, err
	}
	if err := s.guard.Complete(ctx, token, idempotency.Result{Data: string(data), HTTPStatus: 201}); err != nil {
		s.logger.Warn(ctx, "idempotency completion failed",
			logger.String("evidenceID", ev.ID),
			logger.Error(err),
		)
	}
	metrics.UpdateTokenTableSize(s.guard.Size())

	return ev, false, nil
}

// createEvidence persists the submission and moves it onto the review
// queue with its challenge priority.
func (s *Service) createEvidence(ctx context.Context, in model.EvidenceSubmission) (model.Evidence, error) {
	now := s.clock.Now()
	ev := model.Evidence{
		ID:             uuid.NewString(),
		UserID:         in.UserID,
		ChallengeID:    in.ChallengeID,
		Type:           in.Type,
		Title:          in.Title,
		Description:    in.Description,
		Status:         model.EvidenceSubmitted,
		SubmissionDate: now,
		FileURL:        in.FileURL,
		FileName:       in.FileName,
		FileSize:       in.FileSize,
		MimeType:       in.MimeType,
	}

	ev, err := s.store.PutEvidence(ctx, ev)
	if err != nil {
		return model.Evidence{}, err
	}
	metrics.RecordEvidenceSubmitted()

	ev, err = s.lifecycle.MarkPending(ctx, ev.ID)
	if err != nil {
		return model.Evidence{}, err
	}

	category := s.priorityFor(ctx, ev)
	s.reviewQueue.Upsert(ctx, ev.ID, category, ev.SubmissionDate)

	s.logger.Info(ctx, "evidence submitted",
		logger.String("evidenceID", ev.ID),
		logger.String("userID", ev.UserID),
		logger.String("challengeID", ev.ChallengeID),
		logger.String("priority", string(category)),
	)
	return ev, nil
}

// priorityFor resolves the priority bucket for evidence from its
// challenge score, defaulting to MEDIUM when the challenge is unknown.
func (s *Service) priorityFor(ctx context.Context, ev model.Evidence) model.Priority {
	bd, err := s.ComputeCPS(ctx, ev.ChallengeID)
	if err != nil {
		return model.PriorityMedium
	}
	return bd.Category
}

// EvidencePriority implements assignment.Prioritizer.
func (s *Service) EvidencePriority(ctx context.Context, evidenceID string) (model.Priority, error) {
	ev, err := s.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return model.PriorityMedium, err
	}
	return s.priorityFor(ctx, ev), nil
}

// Requeue implements assignment.Requeuer.
func (s *Service) Requeue(ctx context.Context, evidenceID string, attempt int) bool {
	return s.jobs.Enqueue(ctx, jobqueue.Job{
		EvidenceID: evidenceID,
		Attempt:    attempt,
		EnqueuedAt: s.clock.Now(),
	})
}

// GetEvidence returns evidence by id.
func (s *Service) GetEvidence(ctx context.Context, id string) (model.Evidence, error) {
	return s.store.GetEvidence(ctx, id)
}

// UpdateEvidence edits evidence content while it is still editable.
func (s *Service) UpdateEvidence(ctx context.Context, id string, patch lifecycle.Patch) (model.Evidence, error) {
	return s.lifecycle.Edit(ctx, id, patch)
}

// DeleteEvidence retires evidence that has not been validated.
func (s *Service) DeleteEvidence(ctx context.Context, id, reason string) (model.Evidence, error) {
	ev, err := s.lifecycle.Delete(ctx, id, reason)
	if err != nil {
		return model.Evidence{}, err
	}
	s.reviewQueue.Remove(ctx, id)
	return ev, nil
}

// SuspendEvidence pulls evidence out of review pending clarification.
func (s *Service) SuspendEvidence(ctx context.Context, id string) (model.Evidence, error) {
	ev, err := s.lifecycle.Suspend(ctx, id)
	if err != nil {
		return model.Evidence{}, err
	}
	s.reviewQueue.Remove(ctx, id)
	return ev, nil
}

// ReinstateEvidence returns suspended evidence to the review queue.
func (s *Service) ReinstateEvidence(ctx context.Context, id string) (model.Evidence, error) {
	ev, err := s.lifecycle.Reinstate(ctx, id)
	if err != nil {
		return model.Evidence{}, err
	}
	s.reviewQueue.Upsert(ctx, ev.ID, s.priorityFor(ctx, ev), ev.SubmissionDate)
	return ev, nil
}

// AssignValidator picks a validator for pending evidence and stamps the
// review deadline on the evidence.
func (s *Service) AssignValidator(ctx context.Context, evidenceID string) (model.Assignment, error) {
	a, err := s.coordinator.Assign(ctx, evidenceID)
	if err != nil {
		return model.Assignment{}, err
	}

	if ev, err := s.store.GetEvidence(ctx, evidenceID); err == nil {
		deadline := a.Deadline
		ev.ValidationDeadline = &deadline
		if _, err := s.store.SaveEvidence(ctx, ev); err != nil {
			s.logger.Warn(ctx, "validation deadline not recorded",
				logger.String("evidenceID", evidenceID),
				logger.Error(err),
			)
		}
	}
	metrics.UpdateActiveAssignments(s.store.CountActiveTotal(ctx))
	return a, nil
}

// GetAssignment returns an assignment by id.
func (s *Service) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	return s.store.GetAssignment(ctx, id)
}

// AcceptAssignment marks an assignment accepted by its validator.
func (s *Service) AcceptAssignment(ctx context.Context, id string) (model.Assignment, error) {
	return s.coordinator.Accept(ctx, id)
}

// StartAssignment marks an accepted assignment in progress.
func (s *Service) StartAssignment(ctx context.Context, id string) (model.Assignment, error) {
	return s.coordinator.Start(ctx, id)
}

// RejectAssignment lets a validator decline an assignment; the evidence
// goes back through re-assignment.
func (s *Service) RejectAssignment(ctx context.Context, id string) (model.Assignment, error) {
	a, err := s.coordinator.Reject(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	if !s.Requeue(ctx, a.EvidenceID, 0) {
		s.logger.Warn(ctx, "re-assignment queue full after rejection",
			logger.String("evidenceID", a.EvidenceID),
		)
	}
	metrics.UpdateActiveAssignments(s.store.CountActiveTotal(ctx))
	return a, nil
}

// CancelAssignment withdraws an assignment by admin action.
func (s *Service) CancelAssignment(ctx context.Context, id string) (model.Assignment, error) {
	a, err := s.coordinator.Cancel(ctx, id)
	if err != nil {
		return model.Assignment{}, err
	}
	metrics.UpdateActiveAssignments(s.store.CountActiveTotal(ctx))
	return a, nil
}

// SubmitDecision records a validator verdict: it completes the
// assignment, stores the immutable validation, applies the evidence
// transition once enough approvals exist, and refreshes the validator's
// trust score.
func (s *Service) SubmitDecision(ctx context.Context, assignmentID string, in model.ReviewSubmission) (model.Validation, model.Evidence, error) {
	if in.Decision != model.DecisionApproved && in.Decision != model.DecisionRejected {
		return model.Validation{}, model.Evidence{}, fmt.Errorf("%w: unknown decision %q", model.ErrValidation, in.Decision)
	}

	timeTaken := time.Duration(in.TimeTakenSeconds) * time.Second
	a, err := s.coordinator.Complete(ctx, assignmentID, timeTaken, in.Confidence)
	if err != nil {
		return model.Validation{}, model.Evidence{}, err
	}

	now := s.clock.Now()
	v := model.Validation{
		ID:               uuid.NewString(),
		EvidenceID:       a.EvidenceID,
		ValidatorID:      a.ValidatorID,
		Decision:         in.Decision,
		Score:            in.Score,
		Feedback:         in.Feedback,
		TimeTakenSeconds: in.TimeTakenSeconds,
		ValidatedAt:      now,
	}
	v, err = s.store.AddValidation(ctx, v)
	if err != nil {
		return model.Validation{}, model.Evidence{}, err
	}

	ev, err := s.applyVerdicts(ctx, a.EvidenceID)
	if err != nil {
		return model.Validation{}, model.Evidence{}, err
	}

	s.refreshValidatorTrust(ctx, a.ValidatorID)
	metrics.UpdateActiveAssignments(s.store.CountActiveTotal(ctx))

	return v, ev, nil
}

// applyVerdicts finalizes evidence once its validations reach a verdict:
// any rejection rejects, and the configured number of approvals
// validates. Until then the evidence stays pending.
func (s *Service) applyVerdicts(ctx context.Context, evidenceID string) (model.Evidence, error) {
	validations, err := s.store.ListValidationsByEvidence(ctx, evidenceID)
	if err != nil {
		return model.Evidence{}, err
	}

	approvals := 0
	for _, v := range validations {
		if v.Decision == model.DecisionRejected {
			ev, err := s.lifecycle.ApplyDecision(ctx, evidenceID, model.DecisionRejected)
			if err != nil {
				return model.Evidence{}, err
			}
			s.reviewQueue.Remove(ctx, evidenceID)
			return ev, nil
		}
		approvals++
	}

	if approvals >= s.requiredApprovals {
		ev, err := s.lifecycle.ApplyDecision(ctx, evidenceID, model.DecisionApproved)
		if err != nil {
			return model.Evidence{}, err
		}
		s.reviewQueue.Remove(ctx, evidenceID)
		return ev, nil
	}

	return s.store.GetEvidence(ctx, evidenceID)
}

// scoreValidation grades one validation with full reviewer context.
func (s *Service) scoreValidation(ctx context.Context, v model.Validation) scoring.ERSSBreakdown {
	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency("erss", float64(time.Since(start).Milliseconds()))
	}()

	history, _ := s.store.ListValidationsByValidator(ctx, v.ValidatorID)
	coReviews, _ := s.store.ListValidationsByEvidence(ctx, v.EvidenceID)

	in := scoring.ReviewContext{Validation: v}
	for _, h := range history {
		if h.ID != v.ID && h.ValidatedAt.Before(v.ValidatedAt) {
			in.History = append(in.History, h)
		}
	}
	for _, c := range coReviews {
		if c.ID != v.ID {
			in.CoReviews = append(in.CoReviews, c)
		}
	}
	return s.engine.ReviewScore(s.clock.Now(), in)
}

// refreshValidatorTrust recomputes a validator's rolling accuracy from
// its recent review scores.
func (s *Service) refreshValidatorTrust(ctx context.Context, validatorID string) {
	val, err := s.store.GetValidator(ctx, validatorID)
	if err != nil {
		return
	}

	history, err := s.store.ListValidationsByValidator(ctx, validatorID)
	if err != nil {
		return
	}

	now := s.clock.Now()
	cutoff := now.AddDate(0, 0, -s.engine.Policy().TrustWindowDays)
	var recent []float64
	for _, v := range history {
		if v.ValidatedAt.Before(cutoff) {
			continue
		}
		recent = append(recent, s.scoreValidation(ctx, v).Score)
	}

	trust := s.engine.ValidatorTrust(recent, len(history))
	val.AccuracyScore = trust.Score
	val.TotalValidations = len(history)
	if _, err := s.store.SaveValidator(ctx, val); err != nil {
		s.logger.Warn(ctx, "validator trust not saved",
			logger.String("validatorID", validatorID),
			logger.Error(err),
		)
	}
}

// ComputeCPS scores a challenge's review priority.
func (s *Service) ComputeCPS(ctx context.Context, challengeID string) (scoring.CPSBreakdown, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency("cps", float64(time.Since(start).Milliseconds()))
	}()

	ch, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		metrics.RecordScoringError("cps")
		return scoring.CPSBreakdown{}, err
	}

	in := scoring.ChallengeContext{Challenge: ch}
	if creator, err := s.store.GetUser(ctx, ch.CreatorID); err == nil {
		in.Creator = creator
	}
	now := s.clock.Now()
	in.EvidenceLast30Days = s.store.CountEvidenceByChallengeSince(ctx, challengeID, now.AddDate(0, 0, -30))

	return s.engine.ChallengePriority(now, in), nil
}

// ComputeERSS scores one recorded validation.
func (s *Service) ComputeERSS(ctx context.Context, validationID string) (scoring.ERSSBreakdown, error) {
	v, err := s.store.GetValidation(ctx, validationID)
	if err != nil {
		metrics.RecordScoringError("erss")
		return scoring.ERSSBreakdown{}, err
	}
	return s.scoreValidation(ctx, v), nil
}

// ComputeUCI scores a user's engagement consistency. Challenge
// participation is derived from the user's evidence history.
func (s *Service) ComputeUCI(ctx context.Context, userID string) (scoring.UCIBreakdown, error) {
	start := time.Now()
	defer func() {
		metrics.RecordScoringLatency("uci", float64(time.Since(start).Milliseconds()))
	}()

	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		metrics.RecordScoringError("uci")
		return scoring.UCIBreakdown{}, err
	}

	now := s.clock.Now()
	window := now.AddDate(0, 0, -s.engine.Policy().UCIWindowDays)
	evidence, err := s.store.ListEvidenceByUserSince(ctx, userID, window)
	if err != nil {
		metrics.RecordScoringError("uci")
		return scoring.UCIBreakdown{}, err
	}

	// First-try credit depends on submission order; the store returns
	// map order, so walk the evidence chronologically.
	sort.Slice(evidence, func(i, j int) bool {
		if evidence[i].SubmissionDate.Equal(evidence[j].SubmissionDate) {
			return evidence[i].ID < evidence[j].ID
		}
		return evidence[i].SubmissionDate.Before(evidence[j].SubmissionDate)
	})

	in := scoring.UserActivityContext{User: u}

	joined := map[string]bool{}
	completed := map[string]bool{}
	onTime := map[string]bool{}
	seenPerChallenge := map[string]int{}

	for _, ev := range evidence {
		in.EvidenceTotal++
		in.ActivityDates = append(in.ActivityDates, ev.SubmissionDate)
		joined[ev.ChallengeID] = true
		seenPerChallenge[ev.ChallengeID]++

		if ev.Status != model.EvidenceValidated {
			continue
		}
		in.EvidenceApproved++
		completed[ev.ChallengeID] = true
		if seenPerChallenge[ev.ChallengeID] == 1 {
			in.ApprovedFirstTry++
		}
		if ch, err := s.store.GetChallenge(ctx, ev.ChallengeID); err == nil {
			if !ev.SubmissionDate.After(ch.EndDate) {
				onTime[ev.ChallengeID] = true
			}
		}
	}
	in.ChallengesJoined = len(joined)
	in.ChallengesCompleted = len(completed)
	in.CompletedOnTime = len(onTime)

	return s.engine.UserConsistency(now, in), nil
}

// ComputeValidatorTrust returns a validator's current trust breakdown.
func (s *Service) ComputeValidatorTrust(ctx context.Context, validatorID string) (scoring.TrustBreakdown, error) {
	if _, err := s.store.GetValidator(ctx, validatorID); err != nil {
		return scoring.TrustBreakdown{}, err
	}

	history, err := s.store.ListValidationsByValidator(ctx, validatorID)
	if err != nil {
		return scoring.TrustBreakdown{}, err
	}

	cutoff := s.clock.Now().AddDate(0, 0, -s.engine.Policy().TrustWindowDays)
	var recent []float64
	for _, v := range history {
		if !v.ValidatedAt.Before(cutoff) {
			recent = append(recent, s.scoreValidation(ctx, v).Score)
		}
	}
	return s.engine.ValidatorTrust(recent, len(history)), nil
}

// ReviewQueue returns the next n entries in review order.
func (s *Service) ReviewQueue(ctx context.Context, n int) []repository.QueueEntry {
	return s.reviewQueue.Next(ctx, n)
}

// ExpireOverdueNow runs one assignment expiry pass immediately.
func (s *Service) ExpireOverdueNow(ctx context.Context) (int, error) {
	return s.coordinator.ExpireOverdue(ctx, s.clock.Now())
}

// SweepTokensNow runs one idempotency sweep immediately.
func (s *Service) SweepTokensNow(ctx context.Context) int {
	n := s.guard.Sweep(ctx, s.clock.Now())
	metrics.UpdateTokenTableSize(s.guard.Size())
	return n
}

// RegisterValidator stores a validator account, minting an id when absent.
func (s *Service) RegisterValidator(ctx context.Context, v model.Validator) (model.Validator, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = model.ValidatorActive
	}
	return s.store.PutValidator(ctx, v)
}

// GetValidator returns a validator by id.
func (s *Service) GetValidator(ctx context.Context, id string) (model.Validator, error) {
	return s.store.GetValidator(ctx, id)
}

// AddChallenge registers scoring context for a challenge.
func (s *Service) AddChallenge(ctx context.Context, c model.Challenge) error {
	if c.ID == "" {
		return fmt.Errorf("%w: challenge id is required", model.ErrValidation)
	}
	return s.store.PutChallenge(ctx, c)
}

// AddUser registers scoring context for a user.
func (s *Service) AddUser(ctx context.Context, u model.User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: user id is required", model.ErrValidation)
	}
	return s.store.PutUser(ctx, u)
}

// GetStats reports current pipeline counters.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	return map[string]any{
		"pending_evidence":   s.store.CountPendingEvidence(ctx),
		"escalated_evidence": s.store.CountEscalatedEvidence(ctx),
		"active_assignments": s.store.CountActiveTotal(ctx),
		"review_queue_len":   s.reviewQueue.Len(ctx),
		"reassign_queue_len": s.jobs.Len(ctx),
		"tracked_tokens":     s.guard.Size(),
	}
}
