package scoring_test

import (
	"testing"
	"time"

	model "github.com/veristep/veristep/internal/domain/model"
	scoring "github.com/veristep/veristep/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChallengePriority(t *testing.T) {
	Convey("Given a scoring engine with the default policy", t, func() {
		engine := scoring.NewEngine()
		now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

		Convey("When scoring an active public fitness challenge near its deadline", func() {
			in := scoring.ChallengeContext{
				Challenge: model.Challenge{
					ID:              "ch-1",
					Category:        "fitness",
					DifficultyLevel: 4,
					StartDate:       time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
					EndDate:         time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC),
					IsPublic:        true,
				},
				Creator: model.User{
					ID:           "user-1",
					RegisteredAt: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
				},
			}

			b := engine.ChallengePriority(now, in)

			Convey("Then every term matches its definition", func() {
				// 14 of 20 days elapsed.
				So(b.Urgency, ShouldAlmostEqual, 0.7, 1e-9)
				So(b.Difficulty, ShouldAlmostEqual, 0.8, 1e-9)
				// Account younger than 30 days, no submissions.
				So(b.Engagement, ShouldAlmostEqual, 1.0, 1e-9)
				// Base + public + fitness bonus.
				So(b.Community, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("Then the weighted sum lands in the urgent bucket", func() {
				So(b.Score, ShouldAlmostEqual, 0.83, 1e-9)
				So(b.Category, ShouldEqual, model.PriorityUrgent)
			})
		})

		Convey("When the challenge has not started yet", func() {
			base := scoring.ChallengeContext{
				Challenge: model.Challenge{Category: "fitness", DifficultyLevel: 3},
				Creator:   model.User{RegisteredAt: now.AddDate(-2, 0, 0)},
			}

			Convey("And it starts within a week", func() {
				in := base
				in.Challenge.StartDate = now.AddDate(0, 0, 3)
				in.Challenge.EndDate = now.AddDate(0, 0, 10)
				So(engine.ChallengePriority(now, in).Urgency, ShouldAlmostEqual, 0.8, 1e-9)
			})

			Convey("And it starts within a month", func() {
				in := base
				in.Challenge.StartDate = now.AddDate(0, 0, 20)
				in.Challenge.EndDate = now.AddDate(0, 0, 40)
				So(engine.ChallengePriority(now, in).Urgency, ShouldAlmostEqual, 0.5, 1e-9)
			})

			Convey("And it starts later than a month out", func() {
				in := base
				in.Challenge.StartDate = now.AddDate(0, 0, 60)
				in.Challenge.EndDate = now.AddDate(0, 0, 90)
				So(engine.ChallengePriority(now, in).Urgency, ShouldAlmostEqual, 0.2, 1e-9)
			})
		})

		Convey("When the challenge already ended", func() {
			in := scoring.ChallengeContext{
				Challenge: model.Challenge{
					StartDate: now.AddDate(0, 0, -30),
					EndDate:   now.AddDate(0, 0, -1),
				},
				Creator: model.User{RegisteredAt: now.AddDate(-1, 0, 0)},
			}

			Convey("Then urgency collapses to zero", func() {
				So(engine.ChallengePriority(now, in).Urgency, ShouldAlmostEqual, 0, 1e-9)
			})
		})

		Convey("When the difficulty level is outside 1-5", func() {
			in := scoring.ChallengeContext{
				Challenge: model.Challenge{
					DifficultyLevel: 0,
					StartDate:       now.AddDate(0, 0, -1),
					EndDate:         now.AddDate(0, 0, 9),
				},
				Creator: model.User{RegisteredAt: now.AddDate(-1, 0, 0)},
			}

			Convey("Then the neutral default applies", func() {
				So(engine.ChallengePriority(now, in).Difficulty, ShouldAlmostEqual, 0.5, 1e-9)
			})
		})

		Convey("When the creator account is old but the challenge is busy", func() {
			in := scoring.ChallengeContext{
				Challenge: model.Challenge{
					StartDate: now.AddDate(0, 0, -1),
					EndDate:   now.AddDate(0, 0, 9),
				},
				Creator:            model.User{RegisteredAt: now.AddDate(0, 0, -400)},
				EvidenceLast30Days: 5,
			}

			b := engine.ChallengePriority(now, in)

			Convey("Then seniority decays but recent submissions cap out the bonus", func() {
				So(b.Engagement, ShouldAlmostEqual, 0.7, 1e-9) // 0.4 seniority + 0.3 capped activity
			})
		})

		Convey("When the challenge is private, niche, and very long", func() {
			in := scoring.ChallengeContext{
				Challenge: model.Challenge{
					Category:  "unknown",
					IsPublic:  false,
					StartDate: now.AddDate(0, 0, -10),
					EndDate:   now.AddDate(0, 0, 90), // 100-day duration
				},
				Creator: model.User{RegisteredAt: now.AddDate(-1, 0, 0)},
			}

			Convey("Then the community term drops to base minus the duration penalty", func() {
				So(engine.ChallengePriority(now, in).Community, ShouldAlmostEqual, 0.3, 1e-9)
			})
		})
	})
}
