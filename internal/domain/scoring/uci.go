package scoring

import (
	"sort"
	"time"

	"github.com/veristep/veristep/internal/domain/model"
)

// User consistency term constants.
const (
	completionRateMax = 70.0
	onTimeRateMax     = 30.0

	activityRatioMax  = 60.0
	streakBonusStep   = 2.0
	streakBonusCap    = 40.0

	approvalRateMax = 70.0
	firstTryRateMax = 30.0

	maxConsistencyScore = 100.0

	// Last-login heuristic used when SimplifiedStreak is enabled.
	simplifiedStreakFresh  = 7
	simplifiedStreakRecent = 3
)

// UserActivityContext is the hydrated input for the user consistency
// index, pre-filtered by the caller to the policy window.
type UserActivityContext struct {
	User model.User

	ChallengesJoined    int
	ChallengesCompleted int
	CompletedOnTime     int

	EvidenceTotal    int
	EvidenceApproved int
	ApprovedFirstTry int

	// ActivityDates lists days with any user activity inside the
	// window. Duplicates and times within a day are tolerated.
	ActivityDates []time.Time
}

// UCIBreakdown names every term of the user consistency index.
type UCIBreakdown struct {
	Completion float64
	Activity   float64
	Quality    float64

	WeightedCompletion float64
	WeightedActivity   float64
	WeightedQuality    float64

	ActiveDays    int
	CurrentStreak int

	Score float64
}

// UserConsistency computes the UCI for a user at now over the policy
// window. The result is in [0,100] with two decimal places, and exactly
// zero when the window holds no challenges and no evidence.
func (e *Engine) UserConsistency(now time.Time, in UserActivityContext) UCIBreakdown {
	if in.ChallengesJoined == 0 && in.EvidenceTotal == 0 {
		return UCIBreakdown{}
	}

	w := e.policy.UCI

	activeDays := distinctDays(in.ActivityDates)
	streak := e.currentStreak(now, in)

	b := UCIBreakdown{
		Completion:    completionTerm(in),
		Activity:      e.activityTerm(activeDays, streak),
		Quality:       qualityTerm(in),
		ActiveDays:    activeDays,
		CurrentStreak: streak,
	}

	b.WeightedCompletion = w.Completion * b.Completion
	b.WeightedActivity = w.Activity * b.Activity
	b.WeightedQuality = w.Quality * b.Quality

	score := b.WeightedCompletion + b.WeightedActivity + b.WeightedQuality
	b.Score = roundTo(clamp(score, 0, maxConsistencyScore), 2)
	return b
}

// completionTerm scores finished challenges and on-time finishes.
func completionTerm(in UserActivityContext) float64 {
	var completion, onTime float64
	if in.ChallengesJoined > 0 {
		rate := float64(in.ChallengesCompleted) / float64(in.ChallengesJoined)
		completion = clamp(rate*completionRateMax, 0, completionRateMax)
	}
	if in.ChallengesCompleted > 0 {
		rate := float64(in.CompletedOnTime) / float64(in.ChallengesCompleted)
		onTime = clamp(rate*onTimeRateMax, 0, onTimeRateMax)
	}
	return completion + onTime
}

// activityTerm scores active-day coverage of the window plus the streak.
func (e *Engine) activityTerm(activeDays, streak int) float64 {
	ratio := float64(activeDays) / float64(e.policy.UCIWindowDays)
	coverage := clamp(ratio*activityRatioMax, 0, activityRatioMax)

	bonus := streakBonusStep * float64(streak)
	if bonus > streakBonusCap {
		bonus = streakBonusCap
	}
	return coverage + bonus
}

// qualityTerm scores approvals and first-try approvals.
func qualityTerm(in UserActivityContext) float64 {
	var approval, firstTry float64
	if in.EvidenceTotal > 0 {
		rate := float64(in.EvidenceApproved) / float64(in.EvidenceTotal)
		approval = clamp(rate*approvalRateMax, 0, approvalRateMax)
	}
	if in.EvidenceApproved > 0 {
		rate := float64(in.ApprovedFirstTry) / float64(in.EvidenceApproved)
		firstTry = clamp(rate*firstTryRateMax, 0, firstTryRateMax)
	}
	return approval + firstTry
}

// currentStreak returns consecutive active days ending today or
// yesterday. With SimplifiedStreak enabled it reproduces the legacy
// last-login heuristic instead.
func (e *Engine) currentStreak(now time.Time, in UserActivityContext) int {
	if e.policy.SimplifiedStreak {
		since := now.Sub(in.User.LastLoginAt)
		switch {
		case since <= 24*time.Hour:
			return simplifiedStreakFresh
		case since <= 72*time.Hour:
			return simplifiedStreakRecent
		default:
			return 0
		}
	}
	return ActivityStreak(now, in.ActivityDates)
}

// ActivityStreak counts consecutive active days ending today or
// yesterday (a streak survives until a full day is missed).
func ActivityStreak(now time.Time, dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		seen[d.Format("2006-01-02")] = true
	}

	day := truncateDay(now)
	if !seen[day.Format("2006-01-02")] {
		day = day.AddDate(0, 0, -1)
		if !seen[day.Format("2006-01-02")] {
			return 0
		}
	}

	streak := 0
	for seen[day.Format("2006-01-02")] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// distinctDays counts unique calendar days among dates.
func distinctDays(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	days := make([]string, 0, len(dates))
	for _, d := range dates {
		days = append(days, d.Format("2006-01-02"))
	}
	sort.Strings(days)
	count := 1
	for i := 1; i < len(days); i++ {
		if days[i] != days[i-1] {
			count++
		}
	}
	return count
}

// truncateDay drops the time-of-day component in d's location.
func truncateDay(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}
