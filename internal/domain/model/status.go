package model

// EvidenceStatus enumerates the evidence lifecycle states.
type EvidenceStatus string

const (
	EvidenceSubmitted         EvidenceStatus = "SUBMITTED"
	EvidencePendingValidation EvidenceStatus = "PENDING_VALIDATION"
	EvidenceValidated         EvidenceStatus = "VALIDATED"
	EvidenceRejected          EvidenceStatus = "REJECTED"
	EvidenceSuspended         EvidenceStatus = "SUSPENDED"
)

// evidenceTransitions is the single source of truth for lifecycle legality.
// VALIDATED and REJECTED are terminal; SUSPENDED cycles back to pending
// once the moderation collaborator clears the flag.
var evidenceTransitions = map[EvidenceStatus][]EvidenceStatus{
	EvidenceSubmitted:         {EvidencePendingValidation},
	EvidencePendingValidation: {EvidenceValidated, EvidenceRejected, EvidenceSuspended},
	EvidenceSuspended:         {EvidencePendingValidation},
	EvidenceValidated:         {},
	EvidenceRejected:          {},
}

// CanTransitionEvidence reports whether from -> to is a legal lifecycle move.
func CanTransitionEvidence(from, to EvidenceStatus) bool {
	for _, next := range evidenceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EvidenceTerminal reports whether s permits no further transitions.
func EvidenceTerminal(s EvidenceStatus) bool {
	return s == EvidenceValidated || s == EvidenceRejected
}

// EvidenceEditable reports whether evidence content may still be changed.
// Edits are also gated on the absence of recorded validations; that check
// belongs to the lifecycle manager, which can see the validation log.
func EvidenceEditable(s EvidenceStatus) bool {
	return s == EvidenceSubmitted || s == EvidencePendingValidation
}

// AssignmentStatus enumerates validator assignment states.
type AssignmentStatus string

const (
	AssignmentPending    AssignmentStatus = "PENDING"
	AssignmentAccepted   AssignmentStatus = "ACCEPTED"
	AssignmentInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentCompleted  AssignmentStatus = "COMPLETED"
	AssignmentRejected   AssignmentStatus = "REJECTED"
	AssignmentCancelled  AssignmentStatus = "CANCELLED"
	AssignmentExpired    AssignmentStatus = "EXPIRED"
)

var assignmentTransitions = map[AssignmentStatus][]AssignmentStatus{
	AssignmentPending:    {AssignmentAccepted, AssignmentRejected, AssignmentCancelled, AssignmentExpired},
	AssignmentAccepted:   {AssignmentInProgress, AssignmentCancelled, AssignmentExpired},
	AssignmentInProgress: {AssignmentCompleted, AssignmentCancelled, AssignmentExpired},
	AssignmentCompleted:  {},
	AssignmentRejected:   {},
	AssignmentCancelled:  {},
	AssignmentExpired:    {},
}

// CanTransitionAssignment reports whether from -> to is a legal move.
func CanTransitionAssignment(from, to AssignmentStatus) bool {
	for _, next := range assignmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AssignmentActive reports whether s still counts against a validator's
// concurrency cap.
func AssignmentActive(s AssignmentStatus) bool {
	return s == AssignmentPending || s == AssignmentAccepted || s == AssignmentInProgress
}

// ValidatorStatus enumerates reviewer account states. Validators are never
// deleted; retirement is a soft state.
type ValidatorStatus string

const (
	ValidatorActive    ValidatorStatus = "ACTIVE"
	ValidatorInactive  ValidatorStatus = "INACTIVE"
	ValidatorSuspended ValidatorStatus = "SUSPENDED"
)

// Decision is the outcome of a single review.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// Priority buckets derived from the Challenge Priority Score.
type Priority string

const (
	PriorityUrgent  Priority = "URGENT"
	PriorityHigh    Priority = "HIGH"
	PriorityMedium  Priority = "MEDIUM"
	PriorityLow     Priority = "LOW"
	PriorityMinimal Priority = "MINIMAL"
)

// priorityWeights maps buckets to the integer priority stored on assignments.
var priorityWeights = map[Priority]int{
	PriorityUrgent:  10,
	PriorityHigh:    8,
	PriorityMedium:  6,
	PriorityLow:     4,
	PriorityMinimal: 2,
}

// Weight returns the integer priority for p. Unknown buckets weigh 0.
func (p Priority) Weight() int {
	return priorityWeights[p]
}

// PriorityFromScore maps a CPS value in [0,1] to its bucket.
func PriorityFromScore(score float64) Priority {
	switch {
	case score >= 0.8:
		return PriorityUrgent
	case score >= 0.6:
		return PriorityHigh
	case score >= 0.4:
		return PriorityMedium
	case score >= 0.2:
		return PriorityLow
	default:
		return PriorityMinimal
	}
}
