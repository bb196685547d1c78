// Package lifecycle owns the evidence state machine: intake, validation
// outcomes, suspension, edit gating, and logical deletion. Transition
// legality comes from the model transition table; persistence goes
// through the injected store with optimistic versioning.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/pkg/clock"
	"github.com/veristep/veristep/pkg/logger"
	"github.com/veristep/veristep/pkg/metrics"
)

// Store is the persistence surface the manager needs.
type Store interface {
	// GetEvidence loads one evidence record.
	GetEvidence(ctx context.Context, id string) (model.Evidence, error)

	// SaveEvidence persists ev if ev.Version matches the stored version,
	// bumping the version. Returns model.ErrConflict on a stale save.
	SaveEvidence(ctx context.Context, ev model.Evidence) (model.Evidence, error)

	// ListValidationsByEvidence returns the recorded decisions for one
	// piece of evidence.
	ListValidationsByEvidence(ctx context.Context, evidenceID string) ([]model.Validation, error)
}

// Patch carries the editable evidence fields. Nil pointers leave the
// field untouched.
type Patch struct {
	Title       *string
	Description *string
	FileURL     *string
	FileName    *string
	FileSize    *int64
	MimeType    *string
}

// Manager drives evidence through its lifecycle.
type Manager struct {
	store  Store
	clock  clock.Clock
	logger logger.Logger
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager creates a lifecycle manager over store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		clock: clock.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = logger.Get().Named("lifecycle")
	}
	return m
}

// Transition moves evidence to the target status, enforcing the
// transition table. Returns the saved record.
func (m *Manager) Transition(ctx context.Context, evidenceID string, to model.EvidenceStatus) (model.Evidence, error) {
	ev, err := m.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return model.Evidence{}, err
	}
	return m.transition(ctx, ev, to)
}

func (m *Manager) transition(ctx context.Context, ev model.Evidence, to model.EvidenceStatus) (model.Evidence, error) {
	if !model.CanTransitionEvidence(ev.Status, to) {
		metrics.RecordInvalidTransition()
		return model.Evidence{}, fmt.Errorf("%w: evidence %s cannot move %s -> %s",
			model.ErrInvalidState, ev.ID, ev.Status, to)
	}

	ev.Status = to
	saved, err := m.store.SaveEvidence(ctx, ev)
	if err != nil {
		return model.Evidence{}, err
	}

	metrics.RecordLifecycleTransition(string(to))
	m.logger.Info(ctx, "evidence transitioned",
		logger.String("evidenceID", saved.ID),
		logger.String("status", string(to)),
	)
	return saved, nil
}

// MarkPending admits freshly submitted evidence into the review pool.
func (m *Manager) MarkPending(ctx context.Context, evidenceID string) (model.Evidence, error) {
	return m.Transition(ctx, evidenceID, model.EvidencePendingValidation)
}

// ApplyDecision resolves pending evidence from a review outcome.
func (m *Manager) ApplyDecision(ctx context.Context, evidenceID string, decision model.Decision) (model.Evidence, error) {
	target := model.EvidenceValidated
	if decision == model.DecisionRejected {
		target = model.EvidenceRejected
	}
	return m.Transition(ctx, evidenceID, target)
}

// Suspend flags evidence for content-safety review.
func (m *Manager) Suspend(ctx context.Context, evidenceID string) (model.Evidence, error) {
	return m.Transition(ctx, evidenceID, model.EvidenceSuspended)
}

// Reinstate returns suspended evidence to the review pool once the
// moderation collaborator clears it.
func (m *Manager) Reinstate(ctx context.Context, evidenceID string) (model.Evidence, error) {
	return m.Transition(ctx, evidenceID, model.EvidencePendingValidation)
}

// Edit applies a patch to evidence content. Edits are only legal before
// any decision exists and while the status still permits changes.
func (m *Manager) Edit(ctx context.Context, evidenceID string, patch Patch) (model.Evidence, error) {
	ev, err := m.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return model.Evidence{}, err
	}

	if !model.EvidenceEditable(ev.Status) {
		return model.Evidence{}, fmt.Errorf("%w: evidence %s is %s and no longer editable",
			model.ErrInvalidState, ev.ID, ev.Status)
	}
	validations, err := m.store.ListValidationsByEvidence(ctx, evidenceID)
	if err != nil {
		return model.Evidence{}, err
	}
	if len(validations) > 0 {
		return model.Evidence{}, fmt.Errorf("%w: evidence %s already has recorded decisions",
			model.ErrInvalidState, ev.ID)
	}

	if patch.Title != nil {
		ev.Title = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
	}
	if patch.FileURL != nil {
		ev.FileURL = *patch.FileURL
	}
	if patch.FileName != nil {
		ev.FileName = *patch.FileName
	}
	if patch.FileSize != nil {
		ev.FileSize = *patch.FileSize
	}
	if patch.MimeType != nil {
		ev.MimeType = *patch.MimeType
	}

	return m.store.SaveEvidence(ctx, ev)
}

// Delete retires evidence logically: it moves to REJECTED with a
// system-authored reason, preserving audit history.
func (m *Manager) Delete(ctx context.Context, evidenceID, reason string) (model.Evidence, error) {
	ev, err := m.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return model.Evidence{}, err
	}
	if model.EvidenceTerminal(ev.Status) {
		return model.Evidence{}, fmt.Errorf("%w: evidence %s is already %s",
			model.ErrInvalidState, ev.ID, ev.Status)
	}

	// Deletion from SUBMITTED or SUSPENDED routes through the pending
	// state so the table stays the single authority on legality.
	if ev.Status != model.EvidencePendingValidation {
		pending, err := m.transition(ctx, ev, model.EvidencePendingValidation)
		if err != nil {
			return model.Evidence{}, err
		}
		ev = pending
	}

	ev.Description = fmt.Sprintf("[removed] %s", reason)
	rejected, err := m.transition(ctx, ev, model.EvidenceRejected)
	if err != nil {
		return model.Evidence{}, err
	}

	m.logger.Info(ctx, "evidence logically deleted",
		logger.String("evidenceID", evidenceID),
		logger.String("reason", reason),
	)
	return rejected, nil
}

// Escalate flags evidence for manual review after too many expired
// assignments. The status stays PENDING_VALIDATION; the flag is surfaced
// through stats and metrics.
func (m *Manager) Escalate(ctx context.Context, evidenceID string) (model.Evidence, error) {
	ev, err := m.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return model.Evidence{}, err
	}
	if ev.Escalated {
		return ev, nil
	}
	ev.Escalated = true
	saved, err := m.store.SaveEvidence(ctx, ev)
	if err != nil {
		return model.Evidence{}, err
	}
	metrics.RecordEscalation()
	m.logger.Warn(ctx, "evidence escalated for manual review",
		logger.String("evidenceID", evidenceID),
		logger.Int("reassignments", saved.ReassignCount),
	)
	return saved, nil
}
