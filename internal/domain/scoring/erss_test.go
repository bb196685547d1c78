package scoring_test

import (
	"fmt"
	"testing"
	"time"

	model "github.com/veristep/veristep/internal/domain/model"
	scoring "github.com/veristep/veristep/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestReviewScore(t *testing.T) {
	Convey("Given a scoring engine with the default policy", t, func() {
		engine := scoring.NewEngine()
		now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

		Convey("When scoring a quick solo approval with no history", func() {
			in := scoring.ReviewContext{
				Validation: model.Validation{
					Decision:         model.DecisionApproved,
					TimeTakenSeconds: 200,
				},
			}

			b := engine.ReviewScore(now, in)

			Convey("Then missing context falls back to the documented neutrals", func() {
				So(b.Consistency, ShouldAlmostEqual, 50, 1e-9)
				So(b.ResponseTime, ShouldAlmostEqual, 100, 1e-9)
				So(b.FeedbackQuality, ShouldAlmostEqual, 70, 1e-9)
				So(b.Consensus, ShouldAlmostEqual, 50, 1e-9)
				So(b.Score, ShouldAlmostEqual, 67.5, 1e-9)
			})
		})

		Convey("When rejecting without any feedback", func() {
			in := scoring.ReviewContext{
				Validation: model.Validation{
					Decision:         model.DecisionRejected,
					TimeTakenSeconds: 200,
				},
			}

			b := engine.ReviewScore(now, in)

			Convey("Then the empty-feedback penalty is much harsher", func() {
				So(b.FeedbackQuality, ShouldAlmostEqual, 20, 1e-9)
				So(b.Score, ShouldAlmostEqual, 55, 1e-9)
			})
		})

		Convey("When rejecting with a terse ten-character comment", func() {
			in := scoring.ReviewContext{
				Validation: model.Validation{
					Decision:         model.DecisionRejected,
					Feedback:         "too blurry",
					TimeTakenSeconds: 200,
				},
			}

			b := engine.ReviewScore(now, in)

			Convey("Then the short-length bucket applies, not the empty penalty", func() {
				So(b.Consistency, ShouldAlmostEqual, 50, 1e-9)
				So(b.ResponseTime, ShouldAlmostEqual, 100, 1e-9)
				So(b.FeedbackQuality, ShouldAlmostEqual, 30, 1e-9)
				So(b.Consensus, ShouldAlmostEqual, 50, 1e-9)
				So(b.Score, ShouldAlmostEqual, 57.5, 1e-9)
			})
		})

		Convey("When the validator has a balanced recent history", func() {
			var history []model.Validation
			for i := 0; i < 10; i++ {
				d := model.DecisionApproved
				if i%2 == 0 {
					d = model.DecisionRejected
				}
				history = append(history, model.Validation{
					Decision:    d,
					ValidatedAt: now.AddDate(0, 0, -i),
				})
			}
			in := scoring.ReviewContext{
				Validation: model.Validation{Decision: model.DecisionApproved, TimeTakenSeconds: 100},
				History:    history,
			}

			Convey("Then balance plus volume max out the consistency term", func() {
				So(engine.ReviewScore(now, in).Consistency, ShouldAlmostEqual, 100, 1e-9)
			})
		})

		Convey("When the validator approves everything", func() {
			var history []model.Validation
			for i := 0; i < 10; i++ {
				history = append(history, model.Validation{
					Decision:    model.DecisionApproved,
					ValidatedAt: now.AddDate(0, 0, -i),
				})
			}
			in := scoring.ReviewContext{
				Validation: model.Validation{Decision: model.DecisionApproved, TimeTakenSeconds: 100},
				History:    history,
			}

			Convey("Then the skewed approval rate drags consistency down", func() {
				So(engine.ReviewScore(now, in).Consistency, ShouldAlmostEqual, 50, 1e-9) // 30 skewed + 20 volume
			})
		})

		Convey("When all history predates the consistency window", func() {
			in := scoring.ReviewContext{
				Validation: model.Validation{Decision: model.DecisionApproved, TimeTakenSeconds: 100},
				History: []model.Validation{
					{Decision: model.DecisionApproved, ValidatedAt: now.AddDate(0, 0, -45)},
				},
			}

			Convey("Then the inactivity penalty applies", func() {
				So(engine.ReviewScore(now, in).Consistency, ShouldAlmostEqual, 30, 1e-9)
			})
		})

		Convey("When checking the response time steps", func() {
			cases := []struct {
				seconds int
				want    float64
			}{
				{300, 100},
				{900, 80},
				{1800, 60},
				{3600, 40},
				{7200, 20},
				{9000, 10},
			}
			for _, tc := range cases {
				tc := tc
				Convey(fmt.Sprintf("Then %d seconds scores %.0f", tc.seconds, tc.want), func() {
					in := scoring.ReviewContext{
						Validation: model.Validation{Decision: model.DecisionApproved, TimeTakenSeconds: tc.seconds},
					}
					So(engine.ReviewScore(now, in).ResponseTime, ShouldAlmostEqual, tc.want, 1e-9)
				})
			}
		})

		Convey("When the feedback is substantial and constructive", func() {
			in := scoring.ReviewContext{
				Validation: model.Validation{
					Decision:         model.DecisionApproved,
					TimeTakenSeconds: 100,
					Feedback:         "I suggest you improve the framing because the light is poor",
				},
			}

			Convey("Then length plus keyword bonuses stack", func() {
				// 59 chars -> base 80; suggest/improve/because -> +15.
				So(engine.ReviewScore(now, in).FeedbackQuality, ShouldAlmostEqual, 95, 1e-9)
			})
		})

		Convey("When co-reviewers weighed in on the same evidence", func() {
			coReviews := func(approvals, rejections int) []model.Validation {
				var out []model.Validation
				for i := 0; i < approvals; i++ {
					out = append(out, model.Validation{Decision: model.DecisionApproved})
				}
				for i := 0; i < rejections; i++ {
					out = append(out, model.Validation{Decision: model.DecisionRejected})
				}
				return out
			}
			score := func(co []model.Validation) float64 {
				in := scoring.ReviewContext{
					Validation: model.Validation{Decision: model.DecisionApproved, TimeTakenSeconds: 100},
					CoReviews:  co,
				}
				return engine.ReviewScore(now, in).Consensus
			}

			Convey("Then the consensus term tracks the agreement ratio", func() {
				So(score(coReviews(4, 1)), ShouldAlmostEqual, 100, 1e-9) // 0.8 agreement
				So(score(coReviews(3, 2)), ShouldAlmostEqual, 80, 1e-9)  // 0.6
				So(score(coReviews(2, 3)), ShouldAlmostEqual, 50, 1e-9)  // 0.4
				So(score(coReviews(1, 4)), ShouldAlmostEqual, 20, 1e-9)  // 0.2
			})
		})
	})
}

func TestValidatorTrust(t *testing.T) {
	Convey("Given a scoring engine", t, func() {
		engine := scoring.NewEngine()

		Convey("When a validator has recent review scores and some history", func() {
			b := engine.ValidatorTrust([]float64{80, 90}, 10)

			Convey("Then trust is the mean plus the experience bonus", func() {
				So(b.MeanReviewScore, ShouldAlmostEqual, 85, 1e-9)
				So(b.ExperienceBonus, ShouldAlmostEqual, 5, 1e-9)
				So(b.Score, ShouldAlmostEqual, 90, 1e-9)
			})
		})

		Convey("When a validator has a very long track record", func() {
			b := engine.ValidatorTrust([]float64{90, 95}, 500)

			Convey("Then the experience bonus caps out", func() {
				So(b.ExperienceBonus, ShouldAlmostEqual, 15, 1e-9)
				So(b.Score, ShouldAlmostEqual, 100, 1e-9) // clamped
			})
		})

		Convey("When a validator has no recent scores", func() {
			b := engine.ValidatorTrust(nil, 4)

			Convey("Then only the experience bonus counts", func() {
				So(b.MeanReviewScore, ShouldAlmostEqual, 0, 1e-9)
				So(b.Score, ShouldAlmostEqual, 2, 1e-9)
			})
		})
	})
}
