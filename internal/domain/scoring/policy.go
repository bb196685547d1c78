// Package scoring implements the three composite score calculators:
// challenge priority (CPS), evidence review score (ERSS), and user
// consistency index (UCI). Every calculator is a pure deterministic
// function of its inputs and returns a labeled breakdown alongside the
// final value. All weights and tunables live in Policy so the numbers
// can change without touching call sites.
package scoring

import "math"

// CPSWeights weight the challenge priority terms. They must sum to 1.
type CPSWeights struct {
	Urgency    float64 `koanf:"urgency"`
	Difficulty float64 `koanf:"difficulty"`
	Engagement float64 `koanf:"engagement"`
	Community  float64 `koanf:"community"`
}

// Sum returns the total of the weights.
func (w CPSWeights) Sum() float64 {
	return w.Urgency + w.Difficulty + w.Engagement + w.Community
}

// ERSSWeights weight the review score terms. They must sum to 1.
type ERSSWeights struct {
	Consistency     float64 `koanf:"consistency"`
	ResponseTime    float64 `koanf:"response_time"`
	FeedbackQuality float64 `koanf:"feedback_quality"`
	Consensus       float64 `koanf:"consensus"`
}

// Sum returns the total of the weights.
func (w ERSSWeights) Sum() float64 {
	return w.Consistency + w.ResponseTime + w.FeedbackQuality + w.Consensus
}

// UCIWeights weight the user consistency terms. They must sum to 1.
type UCIWeights struct {
	Completion float64 `koanf:"completion"`
	Activity   float64 `koanf:"activity"`
	Quality    float64 `koanf:"quality"`
}

// Sum returns the total of the weights.
func (w UCIWeights) Sum() float64 {
	return w.Completion + w.Activity + w.Quality
}

// Policy bundles every scoring tunable.
type Policy struct {
	CPS  CPSWeights  `koanf:"cps"`
	ERSS ERSSWeights `koanf:"erss"`
	UCI  UCIWeights  `koanf:"uci"`

	// ConsistencyWindowDays bounds the validator decision history that
	// feeds the ERSS consistency term.
	ConsistencyWindowDays int `koanf:"consistency_window_days"`

	// TrustWindowDays bounds the review scores averaged into the
	// validator trust score.
	TrustWindowDays int `koanf:"trust_window_days"`

	// UCIWindowDays bounds the activity window for user consistency.
	UCIWindowDays int `koanf:"uci_window_days"`

	// SimplifiedStreak switches the UCI activity streak to the
	// last-login heuristic instead of scanning the activity log.
	SimplifiedStreak bool `koanf:"simplified_streak"`

	// ConstructiveKeywords earn the ERSS feedback-quality bonus.
	ConstructiveKeywords []string `koanf:"constructive_keywords"`
}

// DefaultPolicy returns the shipped scoring policy.
func DefaultPolicy() Policy {
	return Policy{
		CPS:  CPSWeights{Urgency: 0.40, Difficulty: 0.25, Engagement: 0.20, Community: 0.15},
		ERSS: ERSSWeights{Consistency: 0.35, ResponseTime: 0.25, FeedbackQuality: 0.25, Consensus: 0.15},
		UCI:  UCIWeights{Completion: 0.40, Activity: 0.30, Quality: 0.30},

		ConsistencyWindowDays: 30,
		TrustWindowDays:       90,
		UCIWindowDays:         90,

		ConstructiveKeywords: []string{
			"because", "suggest", "improve", "consider", "instead",
			"example", "specific", "next time", "try",
		},
	}
}

// Engine evaluates the composite scores under one policy.
type Engine struct {
	policy Policy
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithPolicy replaces the default scoring policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

// NewEngine creates a scoring engine with the default policy unless
// overridden by options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Policy returns the engine's active policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// roundTo rounds v half-up to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	return math.Floor(v*pow+0.5) / pow
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
