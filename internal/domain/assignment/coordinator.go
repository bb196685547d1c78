// Package assignment matches pending evidence with eligible validators,
// enforces per-validator concurrency caps, derives SLA deadlines from
// the evidence priority, and expires overdue work for re-assignment.
package assignment

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/pkg/clock"
	"github.com/veristep/veristep/pkg/logger"
	"github.com/veristep/veristep/pkg/metrics"
)

// Store is the persistence surface the coordinator needs.
type Store interface {
	GetEvidence(ctx context.Context, id string) (model.Evidence, error)
	SaveEvidence(ctx context.Context, ev model.Evidence) (model.Evidence, error)
	GetChallenge(ctx context.Context, id string) (model.Challenge, error)

	ListValidators(ctx context.Context) ([]model.Validator, error)

	// CreateAssignment must enforce the duplicate-evidence and
	// concurrency-cap checks atomically with the insert.
	CreateAssignment(ctx context.Context, a model.Assignment, maxActive int) (model.Assignment, error)
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)
	SaveAssignment(ctx context.Context, a model.Assignment) (model.Assignment, error)
	ListAssignmentsByEvidence(ctx context.Context, evidenceID string) ([]model.Assignment, error)
	CountActiveAssignments(ctx context.Context, validatorID string) int
	ListOverdueAssignments(ctx context.Context, now time.Time) ([]model.Assignment, error)
}

// Prioritizer supplies the current priority bucket for evidence,
// normally backed by the challenge priority score.
type Prioritizer interface {
	EvidencePriority(ctx context.Context, evidenceID string) (model.Priority, error)
}

// Requeuer accepts evidence for an asynchronous re-assignment attempt.
// Returns false on backpressure.
type Requeuer interface {
	Requeue(ctx context.Context, evidenceID string, attempt int) bool
}

// Escalator flags evidence for manual review when re-assignment gives up.
type Escalator interface {
	Escalate(ctx context.Context, evidenceID string) (model.Evidence, error)
}

// Policy bundles the assignment tunables. SLA windows shrink as
// priority rises.
type Policy struct {
	SLA map[model.Priority]time.Duration

	// MaxReassignments bounds expiry-driven retries before escalation.
	MaxReassignments int

	// DefaultMaxConcurrent applies to validators without an explicit cap.
	DefaultMaxConcurrent int
}

// DefaultPolicy returns the shipped assignment policy.
func DefaultPolicy() Policy {
	return Policy{
		SLA: map[model.Priority]time.Duration{
			model.PriorityUrgent:  24 * time.Hour,
			model.PriorityHigh:    48 * time.Hour,
			model.PriorityMedium:  96 * time.Hour,
			model.PriorityLow:     7 * 24 * time.Hour,
			model.PriorityMinimal: 14 * 24 * time.Hour,
		},
		MaxReassignments:     3,
		DefaultMaxConcurrent: 5,
	}
}

// Coordinator assigns validators to pending evidence.
type Coordinator struct {
	store       Store
	prioritizer Prioritizer
	requeue     Requeuer
	escalator   Escalator
	policy      Policy
	clock       clock.Clock
	logger      logger.Logger
}

// Option applies a configuration option to the Coordinator.
type Option func(*Coordinator)

// WithPolicy replaces the default assignment policy.
func WithPolicy(p Policy) Option {
	return func(c *Coordinator) {
		if len(p.SLA) > 0 {
			c.policy = p
		}
	}
}

// WithPrioritizer sets the priority source for new assignments.
func WithPrioritizer(p Prioritizer) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.prioritizer = p
		}
	}
}

// WithRequeuer sets the re-assignment sink used by the expiry sweep.
func WithRequeuer(r Requeuer) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.requeue = r
		}
	}
}

// WithEscalator sets the manual-escalation sink.
func WithEscalator(e Escalator) Option {
	return func(c *Coordinator) {
		if e != nil {
			c.escalator = e
		}
	}
}

// WithClock sets the time source.
func WithClock(cl clock.Clock) Option {
	return func(c *Coordinator) {
		if cl != nil {
			c.clock = cl
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator creates a coordinator over store.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:  store,
		policy: DefaultPolicy(),
		clock:  clock.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("assignment")
	}
	return c
}

// candidate pairs a validator with its ranking inputs.
type candidate struct {
	validator      model.Validator
	specialtyMatch bool
	activeLoad     int
}

// Assign picks the best eligible validator for pending evidence and
// creates the assignment. Returns model.ErrConflict when no validator
// is eligible.
func (c *Coordinator) Assign(ctx context.Context, evidenceID string) (model.Assignment, error) {
	ev, err := c.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return model.Assignment{}, err
	}
	if ev.Status != model.EvidencePendingValidation {
		return model.Assignment{}, fmt.Errorf("%w: evidence %s is %s, not assignable",
			model.ErrInvalidState, ev.ID, ev.Status)
	}

	category := ev.Type
	if ch, err := c.store.GetChallenge(ctx, ev.ChallengeID); err == nil {
		category = ch.Category
	}

	// Validators already attached to this evidence, in any state, are
	// out: re-assignment after expiry must reach a different reviewer.
	prior, err := c.store.ListAssignmentsByEvidence(ctx, evidenceID)
	if err != nil {
		return model.Assignment{}, err
	}
	seen := make(map[string]bool, len(prior))
	for _, a := range prior {
		seen[a.ValidatorID] = true
	}

	validators, err := c.store.ListValidators(ctx)
	if err != nil {
		return model.Assignment{}, err
	}

	candidates := make([]candidate, 0, len(validators))
	for _, v := range validators {
		if v.Status != model.ValidatorActive || !v.IsCertified || seen[v.ID] {
			continue
		}
		load := c.store.CountActiveAssignments(ctx, v.ID)
		if load >= c.capFor(v) {
			continue
		}
		candidates = append(candidates, candidate{
			validator:      v,
			specialtyMatch: strings.EqualFold(v.Specialty, category),
			activeLoad:     load,
		})
	}
	if len(candidates) == 0 {
		return model.Assignment{}, fmt.Errorf("%w: no eligible validator for evidence %s",
			model.ErrConflict, evidenceID)
	}

	rankCandidates(candidates)

	priority := model.PriorityMedium
	if c.prioritizer != nil {
		if p, err := c.prioritizer.EvidencePriority(ctx, evidenceID); err == nil {
			priority = p
		}
	}
	now := c.clock.Now()
	deadline := now.Add(c.slaFor(priority))

	// The eligibility snapshot above can go stale under concurrent
	// assignment traffic; CreateAssignment re-checks the cap atomically,
	// so a conflict here just moves on to the next candidate.
	for _, cand := range candidates {
		a := model.Assignment{
			ID:          uuid.NewString(),
			EvidenceID:  evidenceID,
			ValidatorID: cand.validator.ID,
			Status:      model.AssignmentPending,
			Priority:    priority.Weight(),
			AssignedAt:  now,
			Deadline:    deadline,
		}
		created, err := c.store.CreateAssignment(ctx, a, c.capFor(cand.validator))
		if err != nil {
			continue
		}

		metrics.RecordAssignmentCreated(string(priority))
		c.logger.Info(ctx, "validator assigned",
			logger.String("evidenceID", evidenceID),
			logger.String("validatorID", cand.validator.ID),
			logger.String("priority", string(priority)),
			logger.Duration("sla", c.slaFor(priority)),
		)
		return created, nil
	}

	return model.Assignment{}, fmt.Errorf("%w: no eligible validator for evidence %s",
		model.ErrConflict, evidenceID)
}

// rankCandidates orders by specialty match, accuracy, load, seniority,
// then id for determinism.
func rankCandidates(cands []candidate) {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.specialtyMatch != b.specialtyMatch {
			return a.specialtyMatch
		}
		if a.validator.AccuracyScore != b.validator.AccuracyScore {
			return a.validator.AccuracyScore > b.validator.AccuracyScore
		}
		if a.activeLoad != b.activeLoad {
			return a.activeLoad < b.activeLoad
		}
		if !a.validator.CertificationDate.Equal(b.validator.CertificationDate) {
			return a.validator.CertificationDate.Before(b.validator.CertificationDate)
		}
		return a.validator.ID < b.validator.ID
	})
}

func (c *Coordinator) capFor(v model.Validator) int {
	if v.MaxConcurrentValidations > 0 {
		return v.MaxConcurrentValidations
	}
	return c.policy.DefaultMaxConcurrent
}

func (c *Coordinator) slaFor(p model.Priority) time.Duration {
	if d, ok := c.policy.SLA[p]; ok {
		return d
	}
	return c.policy.SLA[model.PriorityMedium]
}

// Accept moves a pending assignment to ACCEPTED.
func (c *Coordinator) Accept(ctx context.Context, assignmentID string) (model.Assignment, error) {
	return c.transition(ctx, assignmentID, model.AssignmentAccepted, func(a *model.Assignment) {
		at := c.clock.Now()
		a.AcceptedAt = &at
	})
}

// Start moves an accepted assignment to IN_PROGRESS.
func (c *Coordinator) Start(ctx context.Context, assignmentID string) (model.Assignment, error) {
	return c.transition(ctx, assignmentID, model.AssignmentInProgress, nil)
}

// Complete finishes an assignment after a decision, advancing implied
// intermediate states when the validator decided straight from PENDING.
func (c *Coordinator) Complete(ctx context.Context, assignmentID string, timeSpent time.Duration, confidence int) (model.Assignment, error) {
	a, err := c.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return model.Assignment{}, err
	}
	if !model.AssignmentActive(a.Status) {
		return model.Assignment{}, fmt.Errorf("%w: assignment %s is %s",
			model.ErrInvalidState, a.ID, a.Status)
	}
	if confidence < 0 || confidence > 100 {
		return model.Assignment{}, fmt.Errorf("%w: confidence %d out of range",
			model.ErrValidation, confidence)
	}

	now := c.clock.Now()
	if a.Status == model.AssignmentPending {
		a.Status = model.AssignmentAccepted
		a.AcceptedAt = &now
	}
	if a.Status == model.AssignmentAccepted {
		a.Status = model.AssignmentInProgress
	}
	a.Status = model.AssignmentCompleted
	a.CompletedAt = &now
	a.TimeSpentMinutes = int(timeSpent.Minutes())
	a.ConfidenceLevel = confidence

	saved, err := c.store.SaveAssignment(ctx, a)
	if err != nil {
		return model.Assignment{}, err
	}
	metrics.RecordAssignmentFinished(string(model.AssignmentCompleted))
	return saved, nil
}

// Reject lets a validator decline a pending assignment.
func (c *Coordinator) Reject(ctx context.Context, assignmentID string) (model.Assignment, error) {
	return c.transition(ctx, assignmentID, model.AssignmentRejected, nil)
}

// Cancel withdraws an active assignment by system or admin action.
func (c *Coordinator) Cancel(ctx context.Context, assignmentID string) (model.Assignment, error) {
	return c.transition(ctx, assignmentID, model.AssignmentCancelled, nil)
}

func (c *Coordinator) transition(ctx context.Context, assignmentID string, to model.AssignmentStatus, mutate func(*model.Assignment)) (model.Assignment, error) {
	a, err := c.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return model.Assignment{}, err
	}
	if !model.CanTransitionAssignment(a.Status, to) {
		return model.Assignment{}, fmt.Errorf("%w: assignment %s cannot move %s -> %s",
			model.ErrInvalidState, a.ID, a.Status, to)
	}
	a.Status = to
	if mutate != nil {
		mutate(&a)
	}
	saved, err := c.store.SaveAssignment(ctx, a)
	if err != nil {
		return model.Assignment{}, err
	}
	if !model.AssignmentActive(to) {
		metrics.RecordAssignmentFinished(string(to))
	}
	return saved, nil
}

// ExpireOverdue transitions every active assignment past its deadline
// to EXPIRED and hands the evidence to the re-assignment pipeline, or
// escalates once the retry bound is spent. A stale save means a human
// action won the race; the sweep skips that assignment. Returns the
// number of assignments expired.
func (c *Coordinator) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := c.store.ListOverdueAssignments(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, a := range overdue {
		a.Status = model.AssignmentExpired
		if _, err := c.store.SaveAssignment(ctx, a); err != nil {
			// Last committed state wins.
			c.logger.Debug(ctx, "expiry lost race, skipping",
				logger.String("assignmentID", a.ID),
				logger.Error(err),
			)
			continue
		}
		expired++
		metrics.RecordAssignmentExpired()

		if err := c.handleExpired(ctx, a, now); err != nil {
			c.logger.Error(ctx, "re-assignment handoff failed",
				logger.String("evidenceID", a.EvidenceID),
				logger.Error(err),
			)
		}
	}
	return expired, nil
}

// handleExpired bumps the evidence reassignment count, then either
// requeues or escalates.
func (c *Coordinator) handleExpired(ctx context.Context, a model.Assignment, now time.Time) error {
	ev, err := c.store.GetEvidence(ctx, a.EvidenceID)
	if err != nil {
		return err
	}
	ev.ReassignCount++
	ev, err = c.store.SaveEvidence(ctx, ev)
	if err != nil {
		return err
	}

	if ev.ReassignCount > c.policy.MaxReassignments {
		if c.escalator != nil {
			_, err := c.escalator.Escalate(ctx, ev.ID)
			return err
		}
		return nil
	}

	if c.requeue != nil {
		metrics.RecordReassignmentAttempt()
		if !c.requeue.Requeue(ctx, ev.ID, ev.ReassignCount) {
			c.logger.Warn(ctx, "re-assignment queue full",
				logger.String("evidenceID", ev.ID),
			)
		}
	}
	return nil
}
