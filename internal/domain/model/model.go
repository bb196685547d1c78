// Package model contains the entities passed between layers: evidence,
// validators, assignments, review decisions, and the read-only scoring
// context (challenges, users). Entities are plain data; transition
// legality lives in the status tables and persistence belongs to the
// repository adapter.
package model

import "time"

// Evidence is a user's submitted proof of challenge progress.
type Evidence struct {
	ID          string
	UserID      string
	ChallengeID string
	Type        string
	Title       string
	Description string
	Status      EvidenceStatus

	// SubmissionDate is immutable once set.
	SubmissionDate     time.Time
	ValidationDeadline *time.Time

	// File metadata is opaque to the engine.
	FileURL  string
	FileName string
	FileSize int64
	MimeType string

	// ReassignCount tracks expired assignments; past the configured bound
	// the evidence is escalated instead of re-queued.
	ReassignCount int
	Escalated     bool

	// Version supports optimistic concurrency on saves.
	Version int64
}

// Validator is a reviewer account authorized to judge evidence.
type Validator struct {
	ID                string
	UserID            string
	Status            ValidatorStatus
	Specialty         string
	ExperienceLevel   int     // 1-10
	AccuracyScore     float64 // rolling trust, 0-100
	IsCertified       bool
	CertificationDate time.Time
	TotalValidations  int

	// MaxConcurrentValidations caps active assignments. Zero means the
	// configured default applies.
	MaxConcurrentValidations int

	Version int64
}

// Assignment links one validator to one piece of evidence with a deadline.
type Assignment struct {
	ID          string
	EvidenceID  string
	ValidatorID string
	Status      AssignmentStatus
	Priority    int // Priority.Weight() at assignment time

	AssignedAt  time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
	Deadline    time.Time

	ConfidenceLevel  int // 0-100
	TimeSpentMinutes int

	Version int64
}

// Validation is a completed review decision. Immutable once created;
// corrections are new records.
type Validation struct {
	ID          string
	EvidenceID  string
	ValidatorID string
	Decision    Decision
	Score       float64
	Feedback    string

	TimeTakenSeconds int
	ValidatedAt      time.Time
}

// Challenge is read-only context for scoring.
type Challenge struct {
	ID              string
	Category        string
	DifficultyLevel int // 1-5
	StartDate       time.Time
	EndDate         time.Time
	IsPublic        bool
	CreatorID       string
}

// DurationDays returns the challenge length in whole days.
func (c Challenge) DurationDays() int {
	return int(c.EndDate.Sub(c.StartDate).Hours() / 24)
}

// User is read-only context for scoring.
type User struct {
	ID           string
	RegisteredAt time.Time
	LastLoginAt  time.Time
}

// EvidenceSubmission carries one evidence intake request.
type EvidenceSubmission struct {
	UserID      string
	ChallengeID string
	Type        string
	Title       string
	Description string
	FileURL     string
	FileName    string
	FileSize    int64
	MimeType    string
}

// ReviewSubmission carries one validator verdict on assigned evidence.
type ReviewSubmission struct {
	Decision         Decision
	Score            float64
	Feedback         string
	TimeTakenSeconds int
	Confidence       int
}

// IdempotencyToken records one consumable mutation token.
type IdempotencyToken struct {
	Token         string
	UserID        string
	OperationType string
	IsUsed        bool
	CreatedAt     time.Time
	ExpiresAt     time.Time

	// Cached outcome replayed to retries once the token is used.
	ResultData string
	HTTPStatus int
}

// Expired reports whether the token is past its TTL at now.
func (t IdempotencyToken) Expired(now time.Time) bool {
	return t.ExpiresAt.Before(now)
}
