package scoring

import (
	"time"

	"github.com/veristep/veristep/internal/domain/model"
)

// Challenge priority term constants.
const (
	hoursPerDay = 24

	urgencyFloor      = 0.1
	urgencySoonDays   = 7
	urgencySoonValue  = 0.8
	urgencyNearDays   = 30
	urgencyNearValue  = 0.5
	urgencyLaterValue = 0.2

	engagementRecentDays  = 30
	engagementYoungDays   = 90
	engagementSettledDays = 365
	engagementPerEvidence = 0.1
	engagementEvidenceCap = 0.3

	communityBase        = 0.5
	communityPublicBonus = 0.3
	communityLongDays    = 90
	communityLongPenalty = 0.2
	communityFloor       = 0.1
)

// categoryBonuses applied to the community term by challenge category.
var categoryBonuses = map[string]float64{
	"fitness":      0.2,
	"health":       0.2,
	"learning":     0.2,
	"productivity": 0.15,
	"creativity":   0.15,
	"social":       0.1,
	"fun":          0.1,
}

// difficultyTerms maps the 1-5 difficulty level to its term value.
var difficultyTerms = map[int]float64{
	1: 0.2,
	2: 0.4,
	3: 0.6,
	4: 0.8,
	5: 1.0,
}

const difficultyDefault = 0.5

// ChallengeContext is the hydrated input for the challenge priority score.
type ChallengeContext struct {
	Challenge model.Challenge

	// Creator is the challenge owner; account age feeds engagement.
	Creator model.User

	// EvidenceLast30Days counts evidence submitted to the challenge in
	// the trailing 30 days.
	EvidenceLast30Days int
}

// CPSBreakdown names every term of the challenge priority score.
// The priority category is its own typed field; it is never encoded
// into a numeric slot.
type CPSBreakdown struct {
	Urgency    float64
	Difficulty float64
	Engagement float64
	Community  float64

	WeightedUrgency    float64
	WeightedDifficulty float64
	WeightedEngagement float64
	WeightedCommunity  float64

	Score    float64
	Category model.Priority
}

// ChallengePriority computes the CPS for a challenge at now.
// The result is in [0,1] with three decimal places.
func (e *Engine) ChallengePriority(now time.Time, in ChallengeContext) CPSBreakdown {
	w := e.policy.CPS

	b := CPSBreakdown{
		Urgency:    urgencyTerm(now, in.Challenge),
		Difficulty: difficultyTerm(in.Challenge.DifficultyLevel),
		Engagement: engagementTerm(now, in.Creator, in.EvidenceLast30Days),
		Community:  communityTerm(in.Challenge),
	}

	b.WeightedUrgency = w.Urgency * b.Urgency
	b.WeightedDifficulty = w.Difficulty * b.Difficulty
	b.WeightedEngagement = w.Engagement * b.Engagement
	b.WeightedCommunity = w.Community * b.Community

	score := b.WeightedUrgency + b.WeightedDifficulty + b.WeightedEngagement + b.WeightedCommunity
	b.Score = roundTo(clamp(score, 0, 1), 3)
	b.Category = model.PriorityFromScore(b.Score)
	return b
}

// urgencyTerm grows as the challenge window closes.
func urgencyTerm(now time.Time, c model.Challenge) float64 {
	if now.Before(c.StartDate) {
		daysUntil := c.StartDate.Sub(now).Hours() / hoursPerDay
		switch {
		case daysUntil <= urgencySoonDays:
			return urgencySoonValue
		case daysUntil <= urgencyNearDays:
			return urgencyNearValue
		default:
			return urgencyLaterValue
		}
	}
	if now.After(c.EndDate) {
		return 0
	}

	totalDays := c.EndDate.Sub(c.StartDate).Hours() / hoursPerDay
	if totalDays <= 0 {
		return urgencyFloor
	}
	remainingDays := c.EndDate.Sub(now).Hours() / hoursPerDay
	elapsed := 1 - remainingDays/totalDays
	if elapsed < urgencyFloor {
		return urgencyFloor
	}
	return elapsed
}

// difficultyTerm maps the discrete difficulty level to its term.
func difficultyTerm(level int) float64 {
	if v, ok := difficultyTerms[level]; ok {
		return v
	}
	return difficultyDefault
}

// engagementTerm rewards young creator accounts and recent submissions.
func engagementTerm(now time.Time, creator model.User, evidenceLast30 int) float64 {
	accountDays := now.Sub(creator.RegisteredAt).Hours() / hoursPerDay

	var seniority float64
	switch {
	case accountDays <= engagementRecentDays:
		seniority = 1.0
	case accountDays <= engagementYoungDays:
		seniority = 0.8
	case accountDays <= engagementSettledDays:
		seniority = 0.6
	default:
		seniority = 0.4
	}

	activity := engagementPerEvidence * float64(evidenceLast30)
	if activity > engagementEvidenceCap {
		activity = engagementEvidenceCap
	}
	return clamp(seniority+activity, 0, 1)
}

// communityTerm scores visibility, category, and duration.
func communityTerm(c model.Challenge) float64 {
	score := communityBase
	if c.IsPublic {
		score += communityPublicBonus
	}
	score += categoryBonuses[c.Category]
	if c.DurationDays() > communityLongDays {
		score -= communityLongPenalty
	}
	return clamp(score, communityFloor, 1)
}
