package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/veristep/veristep/internal/adapters/repository"
	lifecycle "github.com/veristep/veristep/internal/domain/lifecycle"
	model "github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func seedEvidence(ctx context.Context, store *repository.MemStore, id string, status model.EvidenceStatus) model.Evidence {
	ev, err := store.PutEvidence(ctx, model.Evidence{
		ID:             id,
		UserID:         "user-1",
		ChallengeID:    "ch-1",
		Type:           "photo",
		Title:          "morning run",
		Status:         model.EvidenceSubmitted,
		SubmissionDate: time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC),
	})
	So(err, ShouldBeNil)

	mgr := lifecycle.NewManager(store)
	switch status {
	case model.EvidenceSubmitted:
	case model.EvidencePendingValidation:
		ev, err = mgr.MarkPending(ctx, id)
		So(err, ShouldBeNil)
	case model.EvidenceSuspended:
		_, err = mgr.MarkPending(ctx, id)
		So(err, ShouldBeNil)
		ev, err = mgr.Suspend(ctx, id)
		So(err, ShouldBeNil)
	}
	return ev
}

func TestManager_Transitions(t *testing.T) {
	Convey("Given a lifecycle manager over an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		mgr := lifecycle.NewManager(store)

		Convey("When admitting submitted evidence into review", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidenceSubmitted)

			ev, err := mgr.MarkPending(ctx, "ev-1")

			Convey("Then it lands in PENDING_VALIDATION", func() {
				So(err, ShouldBeNil)
				So(ev.Status, ShouldEqual, model.EvidencePendingValidation)
			})
		})

		Convey("When approving pending evidence", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidencePendingValidation)

			ev, err := mgr.ApplyDecision(ctx, "ev-1", model.DecisionApproved)

			Convey("Then it is VALIDATED and frozen", func() {
				So(err, ShouldBeNil)
				So(ev.Status, ShouldEqual, model.EvidenceValidated)

				_, err := mgr.Suspend(ctx, "ev-1")
				So(err, ShouldWrap, model.ErrInvalidState)
			})
		})

		Convey("When rejecting pending evidence", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidencePendingValidation)

			ev, err := mgr.ApplyDecision(ctx, "ev-1", model.DecisionRejected)

			Convey("Then it is REJECTED and frozen", func() {
				So(err, ShouldBeNil)
				So(ev.Status, ShouldEqual, model.EvidenceRejected)

				_, err := mgr.MarkPending(ctx, "ev-1")
				So(err, ShouldWrap, model.ErrInvalidState)
			})
		})

		Convey("When skipping straight from SUBMITTED to VALIDATED", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidenceSubmitted)

			_, err := mgr.ApplyDecision(ctx, "ev-1", model.DecisionApproved)

			Convey("Then the transition table blocks it", func() {
				So(err, ShouldWrap, model.ErrInvalidState)
			})
		})

		Convey("When suspending and reinstating evidence", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidencePendingValidation)

			ev, err := mgr.Suspend(ctx, "ev-1")
			So(err, ShouldBeNil)
			So(ev.Status, ShouldEqual, model.EvidenceSuspended)

			ev, err = mgr.Reinstate(ctx, "ev-1")

			Convey("Then it returns to the review pool", func() {
				So(err, ShouldBeNil)
				So(ev.Status, ShouldEqual, model.EvidencePendingValidation)
			})
		})

		Convey("When the evidence does not exist", func() {
			_, err := mgr.MarkPending(ctx, "missing")

			Convey("Then the store error propagates", func() {
				So(err, ShouldWrap, model.ErrNotFound)
			})
		})
	})
}

func TestManager_Edit(t *testing.T) {
	Convey("Given a lifecycle manager over an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		mgr := lifecycle.NewManager(store)

		newTitle := "evening run"

		Convey("When editing pending evidence with no decisions yet", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidencePendingValidation)

			ev, err := mgr.Edit(ctx, "ev-1", lifecycle.Patch{Title: &newTitle})

			Convey("Then the patch applies and untouched fields survive", func() {
				So(err, ShouldBeNil)
				So(ev.Title, ShouldEqual, "evening run")
				So(ev.UserID, ShouldEqual, "user-1")
			})
		})

		Convey("When a decision already exists on the evidence", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidencePendingValidation)
			_, err := store.AddValidation(ctx, model.Validation{
				ID:          "val-1",
				EvidenceID:  "ev-1",
				ValidatorID: "v-1",
				Decision:    model.DecisionApproved,
			})
			So(err, ShouldBeNil)

			_, err = mgr.Edit(ctx, "ev-1", lifecycle.Patch{Title: &newTitle})

			Convey("Then edits are locked out", func() {
				So(err, ShouldWrap, model.ErrInvalidState)
			})
		})

		Convey("When the evidence is suspended", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidenceSuspended)

			_, err := mgr.Edit(ctx, "ev-1", lifecycle.Patch{Title: &newTitle})

			Convey("Then the status gate blocks the edit", func() {
				So(err, ShouldWrap, model.ErrInvalidState)
			})
		})
	})
}

func TestManager_DeleteAndEscalate(t *testing.T) {
	Convey("Given a lifecycle manager over an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemStore()
		mgr := lifecycle.NewManager(store)

		Convey("When deleting freshly submitted evidence", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidenceSubmitted)

			ev, err := mgr.Delete(ctx, "ev-1", "user withdrew the entry")

			Convey("Then it is retired through REJECTED with the reason on record", func() {
				So(err, ShouldBeNil)
				So(ev.Status, ShouldEqual, model.EvidenceRejected)
				So(ev.Description, ShouldContainSubstring, "user withdrew the entry")
			})
		})

		Convey("When deleting suspended evidence", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidenceSuspended)

			ev, err := mgr.Delete(ctx, "ev-1", "spam")

			Convey("Then it routes through pending to REJECTED", func() {
				So(err, ShouldBeNil)
				So(ev.Status, ShouldEqual, model.EvidenceRejected)
			})
		})

		Convey("When deleting already-validated evidence", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidencePendingValidation)
			_, err := mgr.ApplyDecision(ctx, "ev-1", model.DecisionApproved)
			So(err, ShouldBeNil)

			_, err = mgr.Delete(ctx, "ev-1", "too late")

			Convey("Then terminal evidence stays put", func() {
				So(err, ShouldWrap, model.ErrInvalidState)
			})
		})

		Convey("When escalating evidence for manual review", func() {
			seedEvidence(ctx, store, "ev-1", model.EvidencePendingValidation)

			ev, err := mgr.Escalate(ctx, "ev-1")
			So(err, ShouldBeNil)
			So(ev.Escalated, ShouldBeTrue)
			So(ev.Status, ShouldEqual, model.EvidencePendingValidation)

			Convey("Then a second escalation is a no-op", func() {
				again, err := mgr.Escalate(ctx, "ev-1")
				So(err, ShouldBeNil)
				So(again.Escalated, ShouldBeTrue)
				So(again.Version, ShouldEqual, ev.Version)
			})
		})
	})
}
