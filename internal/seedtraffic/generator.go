package seedtraffic

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Categories drawn for synthetic challenges.
var categories = []string{"fitness", "health", "learning", "productivity", "creativity", "social", "fun"} //nolint:gochecknoglobals // fixed draw table

// Evidence types drawn for synthetic submissions.
var evidenceTypes = []string{"photo", "video", "text", "link"} //nolint:gochecknoglobals // fixed draw table

func randInt(n int64) int64 {
	v, _ := rand.Int(rand.Reader, big.NewInt(n))
	return v.Int64()
}

func randFloat() float64 {
	const divisor = 1_000_000
	return float64(randInt(divisor)) / divisor
}

// userPayload is the wire shape for POST /users.
type userPayload struct {
	ID           string `json:"id"`
	RegisteredAt string `json:"registered_at"`
	LastLoginAt  string `json:"last_login_at"`
}

// challengePayload is the wire shape for POST /challenges.
type challengePayload struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	DifficultyLevel int    `json:"difficulty_level"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	IsPublic        bool   `json:"is_public"`
	CreatorID       string `json:"creator_id"`
}

// validatorPayload is the wire shape for POST /validators.
type validatorPayload struct {
	UserID            string  `json:"user_id"`
	Specialty         string  `json:"specialty"`
	ExperienceLevel   int     `json:"experience_level"`
	AccuracyScore     float64 `json:"accuracy_score"`
	IsCertified       bool    `json:"is_certified"`
	CertificationDate string  `json:"certification_date"`
	MaxConcurrent     int     `json:"max_concurrent_validations"`
}

// generateUsers builds synthetic user payloads with staggered tenure.
func generateUsers(n int) []userPayload {
	now := time.Now().UTC()
	users := make([]userPayload, n)
	for i := range users {
		registered := now.AddDate(0, 0, -int(randInt(400)))
		lastLogin := now.AddDate(0, 0, -int(randInt(45)))
		users[i] = userPayload{
			ID:           uuid.NewString(),
			RegisteredAt: registered.Format(time.RFC3339),
			LastLoginAt:  lastLogin.Format(time.RFC3339),
		}
	}
	return users
}

// generateChallenges builds challenges with mixed categories, deadlines,
// and difficulty so the priority buckets all see traffic.
func generateChallenges(n int, creators []userPayload) []challengePayload {
	now := time.Now().UTC()
	challenges := make([]challengePayload, n)
	for i := range challenges {
		start := now.AddDate(0, 0, -int(randInt(60)))
		// Deadlines from imminent to distant.
		end := now.AddDate(0, 0, 1+int(randInt(90)))
		challenges[i] = challengePayload{
			ID:              uuid.NewString(),
			Category:        categories[randInt(int64(len(categories)))],
			DifficultyLevel: 1 + int(randInt(5)),
			StartDate:       start.Format(time.RFC3339),
			EndDate:         end.Format(time.RFC3339),
			IsPublic:        randInt(4) != 0,
			CreatorID:       creators[randInt(int64(len(creators)))].ID,
		}
	}
	return challenges
}

// generateValidators builds certified validators covering all categories.
func generateValidators(n int) []validatorPayload {
	now := time.Now().UTC()
	validators := make([]validatorPayload, n)
	for i := range validators {
		validators[i] = validatorPayload{
			UserID:            uuid.NewString(),
			Specialty:         categories[i%len(categories)],
			ExperienceLevel:   1 + int(randInt(10)),
			AccuracyScore:     50 + randFloat()*50,
			IsCertified:       true,
			CertificationDate: now.AddDate(0, 0, -30-int(randInt(700))).Format(time.RFC3339),
			MaxConcurrent:     3 + int(randInt(5)),
		}
	}
	return validators
}

// generateSubmissions builds evidence submissions; a configured fraction
// reuses an earlier token to exercise replay handling.
func generateSubmissions(cfg *Config, users []userPayload, challenges []challengePayload) []Submission {
	subs := make([]Submission, 0, cfg.NumSubmissions)
	for i := 0; i < cfg.NumSubmissions; i++ {
		user := users[randInt(int64(len(users)))]
		challenge := challenges[randInt(int64(len(challenges)))]
		sub := Submission{
			Token:       uuid.NewString(),
			UserID:      user.ID,
			ChallengeID: challenge.ID,
			Type:        evidenceTypes[randInt(int64(len(evidenceTypes)))],
			Title:       "progress update " + strconv.Itoa(i),
			Description: "synthetic evidence for load generation",
		}
		subs = append(subs, sub)

		// Duplicate retries of an earlier submission, token included.
		if randFloat() < cfg.DuplicateRate && len(subs) > 1 {
			subs = append(subs, subs[int(randInt(int64(len(subs)-1)))])
			i++
		}
	}
	return subs
}
