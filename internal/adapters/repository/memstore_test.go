package repository_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/veristep/veristep/internal/adapters/repository"
	model "github.com/veristep/veristep/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemStore_EvidenceVersioning(t *testing.T) {
	Convey("Given a memory store holding one evidence record", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()

		submitted := time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)
		ev, err := store.PutEvidence(ctx, model.Evidence{
			ID:             "ev-1",
			UserID:         "user-1",
			ChallengeID:    "ch-1",
			Status:         model.EvidenceSubmitted,
			SubmissionDate: submitted,
		})
		So(err, ShouldBeNil)
		So(ev.Version, ShouldEqual, 1)

		Convey("When inserting the same id twice", func() {
			_, err := store.PutEvidence(ctx, model.Evidence{ID: "ev-1"})

			Convey("Then the insert conflicts", func() {
				So(err, ShouldWrap, model.ErrConflict)
			})
		})

		Convey("When saving with the current version", func() {
			ev.Status = model.EvidencePendingValidation
			saved, err := store.SaveEvidence(ctx, ev)

			Convey("Then the save wins and the version bumps", func() {
				So(err, ShouldBeNil)
				So(saved.Version, ShouldEqual, 2)
				So(saved.Status, ShouldEqual, model.EvidencePendingValidation)
			})
		})

		Convey("When two writers race on the same version", func() {
			first := ev
			second := ev

			first.Title = "writer one"
			_, err := store.SaveEvidence(ctx, first)
			So(err, ShouldBeNil)

			second.Title = "writer two"
			_, err = store.SaveEvidence(ctx, second)

			Convey("Then the stale save conflicts", func() {
				So(err, ShouldWrap, model.ErrConflict)
			})
		})

		Convey("When a save tries to rewrite the submission date", func() {
			ev.SubmissionDate = submitted.AddDate(0, 0, 5)
			saved, err := store.SaveEvidence(ctx, ev)

			Convey("Then the stored date is kept", func() {
				So(err, ShouldBeNil)
				So(saved.SubmissionDate.Equal(submitted), ShouldBeTrue)
			})
		})

		Convey("When loading a missing record", func() {
			_, err := store.GetEvidence(ctx, "missing")
			So(err, ShouldWrap, model.ErrNotFound)
		})
	})
}

func TestMemStore_AssignmentInvariants(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()

		mk := func(id, evidenceID, validatorID string) model.Assignment {
			return model.Assignment{
				ID:          id,
				EvidenceID:  evidenceID,
				ValidatorID: validatorID,
				Status:      model.AssignmentPending,
				Deadline:    time.Date(2026, 6, 20, 0, 0, 0, 0, time.UTC),
			}
		}

		Convey("When a validator is assigned the same evidence twice", func() {
			_, err := store.CreateAssignment(ctx, mk("a-1", "ev-1", "v-1"), 5)
			So(err, ShouldBeNil)

			_, err = store.CreateAssignment(ctx, mk("a-2", "ev-1", "v-1"), 5)

			Convey("Then the duplicate conflicts", func() {
				So(err, ShouldWrap, model.ErrConflict)
			})
		})

		Convey("When a validator is at the concurrency cap", func() {
			_, err := store.CreateAssignment(ctx, mk("a-1", "ev-1", "v-1"), 2)
			So(err, ShouldBeNil)
			_, err = store.CreateAssignment(ctx, mk("a-2", "ev-2", "v-1"), 2)
			So(err, ShouldBeNil)

			_, err = store.CreateAssignment(ctx, mk("a-3", "ev-3", "v-1"), 2)

			Convey("Then the cap holds atomically", func() {
				So(err, ShouldWrap, model.ErrConflict)
				So(store.CountActiveAssignments(ctx, "v-1"), ShouldEqual, 2)
			})

			Convey("And finished assignments free up capacity", func() {
				a, err := store.GetAssignment(ctx, "a-1")
				So(err, ShouldBeNil)
				a.Status = model.AssignmentCompleted
				_, err = store.SaveAssignment(ctx, a)
				So(err, ShouldBeNil)

				_, err = store.CreateAssignment(ctx, mk("a-3", "ev-3", "v-1"), 2)
				So(err, ShouldBeNil)
			})
		})

		Convey("When assignments race for a validator's last slots", func() {
			const limit = 3
			const contenders = limit + 2

			var wg sync.WaitGroup
			var created int64
			wg.Add(contenders)
			for i := 0; i < contenders; i++ {
				go func(i int) {
					defer wg.Done()
					a := mk(fmt.Sprintf("a-%d", i), fmt.Sprintf("ev-%d", i), "v-1")
					if _, err := store.CreateAssignment(ctx, a, limit); err == nil {
						atomic.AddInt64(&created, 1)
					}
				}(i)
			}
			wg.Wait()

			Convey("Then at most the cap commits", func() {
				So(created, ShouldEqual, limit)
				So(store.CountActiveAssignments(ctx, "v-1"), ShouldEqual, limit)
			})
		})

		Convey("When listing overdue assignments", func() {
			now := time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC)

			early := mk("a-1", "ev-1", "v-1")
			early.Deadline = now.Add(-time.Hour)
			_, err := store.CreateAssignment(ctx, early, 5)
			So(err, ShouldBeNil)

			late := mk("a-2", "ev-2", "v-2")
			late.Deadline = now.Add(time.Hour)
			_, err = store.CreateAssignment(ctx, late, 5)
			So(err, ShouldBeNil)

			finished := mk("a-3", "ev-3", "v-3")
			finished.Deadline = now.Add(-time.Hour)
			created, err := store.CreateAssignment(ctx, finished, 5)
			So(err, ShouldBeNil)
			created.Status = model.AssignmentCancelled
			_, err = store.SaveAssignment(ctx, created)
			So(err, ShouldBeNil)

			overdue, err := store.ListOverdueAssignments(ctx, now)

			Convey("Then only active past-deadline assignments are returned", func() {
				So(err, ShouldBeNil)
				So(len(overdue), ShouldEqual, 1)
				So(overdue[0].ID, ShouldEqual, "a-1")
			})
		})
	})
}

func TestMemStore_Validations(t *testing.T) {
	Convey("Given a memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()

		Convey("When recording a decision twice under the same id", func() {
			v := model.Validation{ID: "val-1", EvidenceID: "ev-1", ValidatorID: "v-1"}
			_, err := store.AddValidation(ctx, v)
			So(err, ShouldBeNil)

			_, err = store.AddValidation(ctx, v)

			Convey("Then immutability holds", func() {
				So(err, ShouldWrap, model.ErrConflict)
			})
		})

		Convey("When decisions exist across evidence and validators", func() {
			for _, v := range []model.Validation{
				{ID: "val-1", EvidenceID: "ev-1", ValidatorID: "v-1"},
				{ID: "val-2", EvidenceID: "ev-1", ValidatorID: "v-2"},
				{ID: "val-3", EvidenceID: "ev-2", ValidatorID: "v-1"},
			} {
				_, err := store.AddValidation(ctx, v)
				So(err, ShouldBeNil)
			}

			Convey("Then lookups slice by evidence and by validator", func() {
				byEvidence, err := store.ListValidationsByEvidence(ctx, "ev-1")
				So(err, ShouldBeNil)
				So(len(byEvidence), ShouldEqual, 2)

				byValidator, err := store.ListValidationsByValidator(ctx, "v-1")
				So(err, ShouldBeNil)
				So(len(byValidator), ShouldEqual, 2)
			})
		})
	})
}
