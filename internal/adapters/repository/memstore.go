// Package repository provides the in-memory reference store for engine
// entities. Saves use optimistic versioning, and the validator
// concurrency cap is enforced inside CreateAssignment so the count check
// and the insert form one atomic unit.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/veristep/veristep/internal/domain/model"
)

// MemStore holds all engine entities behind one mutex. The engine is
// read-mostly outside of assignment creation, so a single RWMutex keeps
// the cap invariant simple without measurable contention at this scale.
type MemStore struct {
	mu sync.RWMutex

	evidence    map[string]model.Evidence
	validators  map[string]model.Validator
	assignments map[string]model.Assignment
	validations map[string]model.Validation
	challenges  map[string]model.Challenge
	users       map[string]model.User
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		evidence:    make(map[string]model.Evidence),
		validators:  make(map[string]model.Validator),
		assignments: make(map[string]model.Assignment),
		validations: make(map[string]model.Validation),
		challenges:  make(map[string]model.Challenge),
		users:       make(map[string]model.User),
	}
}

// --- Evidence ---

// PutEvidence inserts new evidence. The id must be unused.
func (s *MemStore) PutEvidence(ctx context.Context, ev model.Evidence) (model.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.evidence[ev.ID]; exists {
		return model.Evidence{}, fmt.Errorf("%w: evidence %s already exists", model.ErrConflict, ev.ID)
	}
	ev.Version = 1
	s.evidence[ev.ID] = ev
	return ev, nil
}

// GetEvidence loads one evidence record.
func (s *MemStore) GetEvidence(ctx context.Context, id string) (model.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.evidence[id]
	if !ok {
		return model.Evidence{}, fmt.Errorf("%w: evidence %s", model.ErrNotFound, id)
	}
	return ev, nil
}

// SaveEvidence persists ev when its version matches the stored one.
// SubmissionDate is immutable and always kept from the stored record.
func (s *MemStore) SaveEvidence(ctx context.Context, ev model.Evidence) (model.Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.evidence[ev.ID]
	if !ok {
		return model.Evidence{}, fmt.Errorf("%w: evidence %s", model.ErrNotFound, ev.ID)
	}
	if current.Version != ev.Version {
		return model.Evidence{}, fmt.Errorf("%w: stale evidence save for %s (have v%d, stored v%d)",
			model.ErrConflict, ev.ID, ev.Version, current.Version)
	}
	ev.SubmissionDate = current.SubmissionDate
	ev.Version++
	s.evidence[ev.ID] = ev
	return ev, nil
}

// CountPendingEvidence returns how many records await validation.
func (s *MemStore) CountPendingEvidence(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ev := range s.evidence {
		if ev.Status == model.EvidencePendingValidation {
			n++
		}
	}
	return n
}

// CountEscalatedEvidence returns how many records are flagged for
// manual review.
func (s *MemStore) CountEscalatedEvidence(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ev := range s.evidence {
		if ev.Escalated {
			n++
		}
	}
	return n
}

// ListEvidenceByUserSince returns the user's evidence submitted at or
// after since.
func (s *MemStore) ListEvidenceByUserSince(ctx context.Context, userID string, since time.Time) ([]model.Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Evidence
	for _, ev := range s.evidence {
		if ev.UserID == userID && !ev.SubmissionDate.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// CountEvidenceByChallengeSince counts submissions to one challenge at
// or after since.
func (s *MemStore) CountEvidenceByChallengeSince(ctx context.Context, challengeID string, since time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, ev := range s.evidence {
		if ev.ChallengeID == challengeID && !ev.SubmissionDate.Before(since) {
			n++
		}
	}
	return n
}

// --- Validators ---

// PutValidator inserts a new validator record.
func (s *MemStore) PutValidator(ctx context.Context, v model.Validator) (model.Validator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.validators[v.ID]; exists {
		return model.Validator{}, fmt.Errorf("%w: validator %s already exists", model.ErrConflict, v.ID)
	}
	v.Version = 1
	s.validators[v.ID] = v
	return v, nil
}

// GetValidator loads one validator.
func (s *MemStore) GetValidator(ctx context.Context, id string) (model.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.validators[id]
	if !ok {
		return model.Validator{}, fmt.Errorf("%w: validator %s", model.ErrNotFound, id)
	}
	return v, nil
}

// SaveValidator persists v when its version matches the stored one.
func (s *MemStore) SaveValidator(ctx context.Context, v model.Validator) (model.Validator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.validators[v.ID]
	if !ok {
		return model.Validator{}, fmt.Errorf("%w: validator %s", model.ErrNotFound, v.ID)
	}
	if current.Version != v.Version {
		return model.Validator{}, fmt.Errorf("%w: stale validator save for %s", model.ErrConflict, v.ID)
	}
	v.Version++
	s.validators[v.ID] = v
	return v, nil
}

// ListValidators returns every validator record.
func (s *MemStore) ListValidators(ctx context.Context) ([]model.Validator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Validator, 0, len(s.validators))
	for _, v := range s.validators {
		out = append(out, v)
	}
	return out, nil
}

// --- Assignments ---

// CreateAssignment inserts a new assignment, enforcing under one lock
// that the validator holds no active assignment for the same evidence
// and stays within maxActive concurrent assignments.
func (s *MemStore) CreateAssignment(ctx context.Context, a model.Assignment, maxActive int) (model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assignments[a.ID]; exists {
		return model.Assignment{}, fmt.Errorf("%w: assignment %s already exists", model.ErrConflict, a.ID)
	}

	active := 0
	for _, existing := range s.assignments {
		if existing.ValidatorID != a.ValidatorID || !model.AssignmentActive(existing.Status) {
			continue
		}
		if existing.EvidenceID == a.EvidenceID {
			return model.Assignment{}, fmt.Errorf("%w: validator %s already assigned to evidence %s",
				model.ErrConflict, a.ValidatorID, a.EvidenceID)
		}
		active++
	}
	if maxActive > 0 && active >= maxActive {
		return model.Assignment{}, fmt.Errorf("%w: validator %s at concurrency cap %d",
			model.ErrConflict, a.ValidatorID, maxActive)
	}

	a.Version = 1
	s.assignments[a.ID] = a
	return a, nil
}

// GetAssignment loads one assignment.
func (s *MemStore) GetAssignment(ctx context.Context, id string) (model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[id]
	if !ok {
		return model.Assignment{}, fmt.Errorf("%w: assignment %s", model.ErrNotFound, id)
	}
	return a, nil
}

// SaveAssignment persists a when its version matches the stored one.
// The optimistic check is what keeps a human completion and the expiry
// sweep from both winning.
func (s *MemStore) SaveAssignment(ctx context.Context, a model.Assignment) (model.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assignments[a.ID]
	if !ok {
		return model.Assignment{}, fmt.Errorf("%w: assignment %s", model.ErrNotFound, a.ID)
	}
	if current.Version != a.Version {
		return model.Assignment{}, fmt.Errorf("%w: stale assignment save for %s", model.ErrConflict, a.ID)
	}
	a.Version++
	s.assignments[a.ID] = a
	return a, nil
}

// ListAssignmentsByEvidence returns every assignment ever made for one
// piece of evidence.
func (s *MemStore) ListAssignmentsByEvidence(ctx context.Context, evidenceID string) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Assignment
	for _, a := range s.assignments {
		if a.EvidenceID == evidenceID {
			out = append(out, a)
		}
	}
	return out, nil
}

// CountActiveAssignments returns the validator's current active load.
func (s *MemStore) CountActiveAssignments(ctx context.Context, validatorID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.assignments {
		if a.ValidatorID == validatorID && model.AssignmentActive(a.Status) {
			n++
		}
	}
	return n
}

// CountActiveTotal returns the number of active assignments store-wide.
func (s *MemStore) CountActiveTotal(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.assignments {
		if model.AssignmentActive(a.Status) {
			n++
		}
	}
	return n
}

// ListOverdueAssignments returns active assignments whose deadline
// passed before now.
func (s *MemStore) ListOverdueAssignments(ctx context.Context, now time.Time) ([]model.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Assignment
	for _, a := range s.assignments {
		if model.AssignmentActive(a.Status) && a.Deadline.Before(now) {
			out = append(out, a)
		}
	}
	return out, nil
}

// --- Validations ---

// AddValidation records a completed review decision. Decisions are
// immutable; duplicate ids conflict.
func (s *MemStore) AddValidation(ctx context.Context, v model.Validation) (model.Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.validations[v.ID]; exists {
		return model.Validation{}, fmt.Errorf("%w: validation %s already exists", model.ErrConflict, v.ID)
	}
	s.validations[v.ID] = v
	return v, nil
}

// GetValidation loads one review decision.
func (s *MemStore) GetValidation(ctx context.Context, id string) (model.Validation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.validations[id]
	if !ok {
		return model.Validation{}, fmt.Errorf("%w: validation %s", model.ErrNotFound, id)
	}
	return v, nil
}

// ListValidationsByEvidence returns the decisions on one piece of
// evidence.
func (s *MemStore) ListValidationsByEvidence(ctx context.Context, evidenceID string) ([]model.Validation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Validation
	for _, v := range s.validations {
		if v.EvidenceID == evidenceID {
			out = append(out, v)
		}
	}
	return out, nil
}

// ListValidationsByValidator returns one validator's decision history.
func (s *MemStore) ListValidationsByValidator(ctx context.Context, validatorID string) ([]model.Validation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Validation
	for _, v := range s.validations {
		if v.ValidatorID == validatorID {
			out = append(out, v)
		}
	}
	return out, nil
}

// --- Read-only scoring context ---

// PutChallenge stores a challenge view.
func (s *MemStore) PutChallenge(ctx context.Context, c model.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[c.ID] = c
	return nil
}

// GetChallenge loads one challenge view.
func (s *MemStore) GetChallenge(ctx context.Context, id string) (model.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.challenges[id]
	if !ok {
		return model.Challenge{}, fmt.Errorf("%w: challenge %s", model.ErrNotFound, id)
	}
	return c, nil
}

// PutUser stores a user view.
func (s *MemStore) PutUser(ctx context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

// GetUser loads one user view.
func (s *MemStore) GetUser(ctx context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: user %s", model.ErrNotFound, id)
	}
	return u, nil
}
