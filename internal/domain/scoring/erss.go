package scoring

import (
	"strings"
	"time"

	"github.com/veristep/veristep/internal/domain/model"
)

// Review score term constants.
const (
	consistencyNeutral    = 50.0
	consistencyInactive   = 30.0
	consistencyBalanced   = 80.0
	consistencyAcceptable = 60.0
	consistencySkewed     = 30.0
	consistencyVolumeStep = 2.0
	consistencyVolumeCap  = 20.0

	feedbackApproveEmpty = 70.0
	feedbackRejectEmpty  = 20.0
	feedbackKeywordBonus = 5.0
	feedbackBonusCap     = 20.0

	consensusNeutral = 50.0

	maxReviewScore = 100.0

	trustExperienceStep = 0.5
	trustExperienceCap  = 15.0
)

// ReviewContext is the hydrated input for scoring one review decision.
type ReviewContext struct {
	// Validation is the decision being scored.
	Validation model.Validation

	// History holds the validator's other decisions; the consistency
	// term filters it to the policy window.
	History []model.Validation

	// CoReviews holds other validators' decisions on the same evidence.
	CoReviews []model.Validation
}

// ERSSBreakdown names every term of the evidence review score.
type ERSSBreakdown struct {
	Consistency     float64
	ResponseTime    float64
	FeedbackQuality float64
	Consensus       float64

	WeightedConsistency     float64
	WeightedResponseTime    float64
	WeightedFeedbackQuality float64
	WeightedConsensus       float64

	Score float64
}

// ReviewScore computes the ERSS for a single review decision at now.
// The result is in [0,100] with two decimal places. Missing history and
// solo reviews yield documented neutral values, never an error.
func (e *Engine) ReviewScore(now time.Time, in ReviewContext) ERSSBreakdown {
	w := e.policy.ERSS

	b := ERSSBreakdown{
		Consistency:     e.consistencyTerm(now, in.History),
		ResponseTime:    responseTimeTerm(in.Validation.TimeTakenSeconds),
		FeedbackQuality: e.feedbackQualityTerm(in.Validation),
		Consensus:       consensusTerm(in.Validation.Decision, in.CoReviews),
	}

	b.WeightedConsistency = w.Consistency * b.Consistency
	b.WeightedResponseTime = w.ResponseTime * b.ResponseTime
	b.WeightedFeedbackQuality = w.FeedbackQuality * b.FeedbackQuality
	b.WeightedConsensus = w.Consensus * b.Consensus

	score := b.WeightedConsistency + b.WeightedResponseTime + b.WeightedFeedbackQuality + b.WeightedConsensus
	b.Score = roundTo(clamp(score, 0, maxReviewScore), 2)
	return b
}

// consistencyTerm scores the validator's decision balance over the
// trailing window. No history at all is neutral; history with nothing in
// the window is the inactivity penalty.
func (e *Engine) consistencyTerm(now time.Time, history []model.Validation) float64 {
	if len(history) == 0 {
		return consistencyNeutral
	}

	windowStart := now.AddDate(0, 0, -e.policy.ConsistencyWindowDays)
	var recent, approved int
	for _, v := range history {
		if v.ValidatedAt.Before(windowStart) {
			continue
		}
		recent++
		if v.Decision == model.DecisionApproved {
			approved++
		}
	}
	if recent == 0 {
		return consistencyInactive
	}

	approvalRate := float64(approved) / float64(recent)
	var balance float64
	switch {
	case approvalRate >= 0.4 && approvalRate <= 0.7:
		balance = consistencyBalanced
	case approvalRate >= 0.3 && approvalRate <= 0.8:
		balance = consistencyAcceptable
	default:
		balance = consistencySkewed
	}

	volume := consistencyVolumeStep * float64(recent)
	if volume > consistencyVolumeCap {
		volume = consistencyVolumeCap
	}
	return clamp(balance+volume, 0, maxReviewScore)
}

// responseTimeTerm is a step function on seconds-to-decide.
func responseTimeTerm(seconds int) float64 {
	switch {
	case seconds <= 300:
		return 100
	case seconds <= 900:
		return 80
	case seconds <= 1800:
		return 60
	case seconds <= 3600:
		return 40
	case seconds <= 7200:
		return 20
	default:
		return 10
	}
}

// feedbackQualityTerm scores feedback length and constructive language.
// Empty feedback is tolerable on approvals and poor on rejections.
func (e *Engine) feedbackQualityTerm(v model.Validation) float64 {
	feedback := strings.TrimSpace(v.Feedback)
	if feedback == "" {
		if v.Decision == model.DecisionApproved {
			return feedbackApproveEmpty
		}
		return feedbackRejectEmpty
	}

	var base float64
	switch n := len(feedback); {
	case n < 20:
		base = 30
	case n < 50:
		base = 50
	case n < 150:
		base = 80
	case n < 300:
		base = 90
	default:
		base = 70
	}

	var bonus float64
	lower := strings.ToLower(feedback)
	for _, kw := range e.policy.ConstructiveKeywords {
		if strings.Contains(lower, kw) {
			bonus += feedbackKeywordBonus
		}
	}
	if bonus > feedbackBonusCap {
		bonus = feedbackBonusCap
	}
	return clamp(base+bonus, 0, maxReviewScore)
}

// consensusTerm scores agreement with co-reviewers on the same evidence.
// A solo review is neutral.
func consensusTerm(decision model.Decision, coReviews []model.Validation) float64 {
	if len(coReviews) == 0 {
		return consensusNeutral
	}

	var agreeing int
	for _, v := range coReviews {
		if v.Decision == decision {
			agreeing++
		}
	}
	ratio := float64(agreeing) / float64(len(coReviews))
	switch {
	case ratio >= 0.8:
		return 100
	case ratio >= 0.6:
		return 80
	case ratio >= 0.4:
		return 50
	default:
		return 20
	}
}

// TrustBreakdown names the terms of the derived validator trust score.
type TrustBreakdown struct {
	MeanReviewScore float64
	ExperienceBonus float64
	Score           float64
}

// ValidatorTrust averages a validator's review scores over the trust
// window (the caller selects and scores the in-window validations) and
// adds an experience bonus. The result is in [0,100], two decimals.
func (e *Engine) ValidatorTrust(recentScores []float64, totalValidations int) TrustBreakdown {
	var b TrustBreakdown
	if len(recentScores) > 0 {
		var sum float64
		for _, s := range recentScores {
			sum += s
		}
		b.MeanReviewScore = sum / float64(len(recentScores))
	}

	b.ExperienceBonus = trustExperienceStep * float64(totalValidations)
	if b.ExperienceBonus > trustExperienceCap {
		b.ExperienceBonus = trustExperienceCap
	}

	b.Score = roundTo(clamp(b.MeanReviewScore+b.ExperienceBonus, 0, maxReviewScore), 2)
	return b
}
