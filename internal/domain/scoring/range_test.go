package scoring_test

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	model "github.com/veristep/veristep/internal/domain/model"
	scoring "github.com/veristep/veristep/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

// Fixed seed keeps the generated inputs reproducible across runs.
const rangeSeed = 7

func TestScoreRanges(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(rangeSeed))
	engine := scoring.NewEngine()

	decisions := []model.Decision{model.DecisionApproved, model.DecisionRejected}

	randomValidation := func(id string) model.Validation {
		return model.Validation{
			ID:               id,
			EvidenceID:       "ev-r",
			ValidatorID:      "v-r",
			Decision:         decisions[rng.Intn(2)],
			Score:            rng.Float64() * 100,
			Feedback:         strings.Repeat("detail ", rng.Intn(40)),
			TimeTakenSeconds: rng.Intn(20_000),
			ValidatedAt:      now.Add(-time.Duration(rng.Intn(120*24)) * time.Hour),
		}
	}

	Convey("Given randomized inputs with a fixed seed", t, func() {
		Convey("Then challenge priority always stays within [0,1]", func() {
			for i := 0; i < 500; i++ {
				start := now.AddDate(0, 0, rng.Intn(180)-90)
				in := scoring.ChallengeContext{
					Challenge: model.Challenge{
						ID:              "ch-r",
						Category:        "fitness",
						DifficultyLevel: rng.Intn(8) - 1, // includes out-of-range values
						StartDate:       start,
						EndDate:         start.AddDate(0, 0, rng.Intn(60)),
						IsPublic:        rng.Intn(2) == 0,
						CreatorID:       "u-r",
					},
					Creator: model.User{
						ID:           "u-r",
						RegisteredAt: now.AddDate(0, 0, -rng.Intn(800)),
					},
					EvidenceLast30Days: rng.Intn(50),
				}

				bd := engine.ChallengePriority(now, in)
				So(bd.Score, ShouldBeBetweenOrEqual, 0, 1)
				So(bd.Category, ShouldBeIn, []model.Priority{
					model.PriorityUrgent, model.PriorityHigh, model.PriorityMedium,
					model.PriorityLow, model.PriorityMinimal,
				})
			}
		})

		Convey("Then review scores always stay within [0,100]", func() {
			for i := 0; i < 500; i++ {
				in := scoring.ReviewContext{Validation: randomValidation("val-r")}
				for j := 0; j < rng.Intn(20); j++ {
					in.History = append(in.History, randomValidation("h"))
				}
				for j := 0; j < rng.Intn(6); j++ {
					in.CoReviews = append(in.CoReviews, randomValidation("c"))
				}

				bd := engine.ReviewScore(now, in)
				So(bd.Score, ShouldBeBetweenOrEqual, 0, 100)
			}
		})

		Convey("Then user consistency always stays within [0,100]", func() {
			for i := 0; i < 500; i++ {
				joined := rng.Intn(20)
				total := rng.Intn(40)
				in := scoring.UserActivityContext{
					User: model.User{
						ID:           "u-r",
						RegisteredAt: now.AddDate(0, 0, -rng.Intn(800)),
						LastLoginAt:  now.Add(-time.Duration(rng.Intn(10*24)) * time.Hour),
					},
					ChallengesJoined:    joined,
					ChallengesCompleted: rng.Intn(joined + 1),
					CompletedOnTime:     rng.Intn(joined + 1),
					EvidenceTotal:       total,
					EvidenceApproved:    rng.Intn(total + 1),
					ApprovedFirstTry:    rng.Intn(total + 1),
				}
				for j := 0; j < rng.Intn(120); j++ {
					in.ActivityDates = append(in.ActivityDates,
						now.AddDate(0, 0, -rng.Intn(100)))
				}

				bd := engine.UserConsistency(now, in)
				So(bd.Score, ShouldBeBetweenOrEqual, 0, 100)
			}
		})

		Convey("Then validator trust always stays within [0,100]", func() {
			for i := 0; i < 500; i++ {
				var scores []float64
				for j := 0; j < rng.Intn(30); j++ {
					scores = append(scores, rng.Float64()*100)
				}

				bd := engine.ValidatorTrust(scores, rng.Intn(2_000))
				So(bd.Score, ShouldBeBetweenOrEqual, 0, 100)
			}
		})
	})
}
