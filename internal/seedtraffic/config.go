package seedtraffic

import "time"

// Config holds configuration for the synthetic traffic run.
type Config struct {
	BaseURL        string        // Base URL of the service
	NumUsers       int           // Number of users to register
	NumChallenges  int           // Number of challenges to register
	NumValidators  int           // Number of validators to register
	NumSubmissions int           // Number of evidence submissions
	DuplicateRate  float64       // Fraction of submissions retried with the same token
	Workers        int           // Number of concurrent workers
	Timeout        time.Duration // HTTP request timeout
	LogFile        string        // Log file for run output
	Verbose        bool          // Enable verbose logging
}

// Submission represents one evidence submission request.
type Submission struct {
	Token       string `json:"-"`
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// EvidenceAck represents the response from evidence submission.
type EvidenceAck struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	UsersRegistered      int
	ChallengesRegistered int
	ValidatorsRegistered int
	Submitted            int
	Created              int
	Replayed             int
	Failed               int
	QueueEntries         int
	StartTime            time.Time
	EndTime              time.Time
	Duration             time.Duration
}
