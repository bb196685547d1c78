package scoring_test

import (
	"testing"
	"time"

	model "github.com/veristep/veristep/internal/domain/model"
	scoring "github.com/veristep/veristep/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestUserConsistency(t *testing.T) {
	Convey("Given a scoring engine with the default policy", t, func() {
		engine := scoring.NewEngine()
		now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

		Convey("When the user has no activity in the window", func() {
			b := engine.UserConsistency(now, scoring.UserActivityContext{})

			Convey("Then the score is exactly zero with an empty breakdown", func() {
				So(b.Score, ShouldEqual, 0)
				So(b.Completion, ShouldEqual, 0)
				So(b.Activity, ShouldEqual, 0)
				So(b.Quality, ShouldEqual, 0)
			})
		})

		Convey("When the user has a mixed record", func() {
			// Three-day streak ending today plus six scattered days.
			dates := []time.Time{
				now, now.AddDate(0, 0, -1), now.AddDate(0, 0, -2),
				now.AddDate(0, 0, -10), now.AddDate(0, 0, -20), now.AddDate(0, 0, -30),
				now.AddDate(0, 0, -40), now.AddDate(0, 0, -50), now.AddDate(0, 0, -60),
			}
			in := scoring.UserActivityContext{
				User:                model.User{ID: "user-1"},
				ChallengesJoined:    4,
				ChallengesCompleted: 2,
				CompletedOnTime:     2,
				EvidenceTotal:       10,
				EvidenceApproved:    5,
				ApprovedFirstTry:    5,
				ActivityDates:       dates,
			}

			b := engine.UserConsistency(now, in)

			Convey("Then every term matches its definition", func() {
				So(b.Completion, ShouldAlmostEqual, 65, 1e-9) // 35 completion + 30 on-time
				So(b.Quality, ShouldAlmostEqual, 65, 1e-9)    // 35 approval + 30 first-try
				So(b.ActiveDays, ShouldEqual, 9)
				So(b.CurrentStreak, ShouldEqual, 3)
				So(b.Activity, ShouldAlmostEqual, 12, 1e-9) // 6 coverage + 6 streak bonus
			})

			Convey("Then the weighted sum rounds to two decimals", func() {
				So(b.Score, ShouldAlmostEqual, 49.1, 1e-9)
			})
		})

		Convey("When duplicate timestamps land on the same day", func() {
			in := scoring.UserActivityContext{
				ChallengesJoined: 1,
				ActivityDates: []time.Time{
					now, now.Add(2 * time.Hour), now.Add(-3 * time.Hour),
					now.AddDate(0, 0, -1),
				},
			}

			b := engine.UserConsistency(now, in)

			Convey("Then active days are counted per calendar day", func() {
				So(b.ActiveDays, ShouldEqual, 2)
				So(b.CurrentStreak, ShouldEqual, 2)
			})
		})

		Convey("When the simplified streak heuristic is enabled", func() {
			p := scoring.DefaultPolicy()
			p.SimplifiedStreak = true
			simplified := scoring.NewEngine(scoring.WithPolicy(p))

			streakFor := func(lastLogin time.Time) int {
				in := scoring.UserActivityContext{
					User:             model.User{LastLoginAt: lastLogin},
					ChallengesJoined: 1,
				}
				return simplified.UserConsistency(now, in).CurrentStreak
			}

			Convey("Then the streak comes from login freshness, not the activity log", func() {
				So(streakFor(now.Add(-12*time.Hour)), ShouldEqual, 7)
				So(streakFor(now.Add(-48*time.Hour)), ShouldEqual, 3)
				So(streakFor(now.Add(-200*time.Hour)), ShouldEqual, 0)
			})
		})
	})
}

func TestActivityStreak(t *testing.T) {
	Convey("Given the activity streak counter", t, func() {
		now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

		Convey("When the log is empty", func() {
			So(scoring.ActivityStreak(now, nil), ShouldEqual, 0)
		})

		Convey("When the user was active today and the two days before", func() {
			dates := []time.Time{now, now.AddDate(0, 0, -1), now.AddDate(0, 0, -2)}
			So(scoring.ActivityStreak(now, dates), ShouldEqual, 3)
		})

		Convey("When the streak ended yesterday", func() {
			dates := []time.Time{now.AddDate(0, 0, -1), now.AddDate(0, 0, -2)}

			Convey("Then it still counts until a full day is missed", func() {
				So(scoring.ActivityStreak(now, dates), ShouldEqual, 2)
			})
		})

		Convey("When the last activity was two days ago", func() {
			dates := []time.Time{now.AddDate(0, 0, -2), now.AddDate(0, 0, -3)}

			Convey("Then the streak is broken", func() {
				So(scoring.ActivityStreak(now, dates), ShouldEqual, 0)
			})
		})

		Convey("When the history has a gap behind the current run", func() {
			dates := []time.Time{
				now, now.AddDate(0, 0, -1),
				now.AddDate(0, 0, -5), now.AddDate(0, 0, -6),
			}

			Convey("Then only the contiguous run counts", func() {
				So(scoring.ActivityStreak(now, dates), ShouldEqual, 2)
			})
		})
	})
}
