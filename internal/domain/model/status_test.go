package model_test

import (
	"testing"
	"time"

	model "github.com/veristep/veristep/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestEvidenceTransitions(t *testing.T) {
	Convey("Given the evidence lifecycle table", t, func() {
		Convey("When checking legal transitions", func() {
			So(model.CanTransitionEvidence(model.EvidenceSubmitted, model.EvidencePendingValidation), ShouldBeTrue)
			So(model.CanTransitionEvidence(model.EvidencePendingValidation, model.EvidenceValidated), ShouldBeTrue)
			So(model.CanTransitionEvidence(model.EvidencePendingValidation, model.EvidenceRejected), ShouldBeTrue)
			So(model.CanTransitionEvidence(model.EvidencePendingValidation, model.EvidenceSuspended), ShouldBeTrue)
			So(model.CanTransitionEvidence(model.EvidenceSuspended, model.EvidencePendingValidation), ShouldBeTrue)
		})

		Convey("When checking illegal transitions", func() {
			So(model.CanTransitionEvidence(model.EvidenceSubmitted, model.EvidenceValidated), ShouldBeFalse)
			So(model.CanTransitionEvidence(model.EvidenceSubmitted, model.EvidenceRejected), ShouldBeFalse)
			So(model.CanTransitionEvidence(model.EvidenceSuspended, model.EvidenceValidated), ShouldBeFalse)
			So(model.CanTransitionEvidence(model.EvidenceValidated, model.EvidencePendingValidation), ShouldBeFalse)
			So(model.CanTransitionEvidence(model.EvidenceRejected, model.EvidencePendingValidation), ShouldBeFalse)
		})

		Convey("Then only VALIDATED and REJECTED are terminal", func() {
			So(model.EvidenceTerminal(model.EvidenceValidated), ShouldBeTrue)
			So(model.EvidenceTerminal(model.EvidenceRejected), ShouldBeTrue)
			So(model.EvidenceTerminal(model.EvidenceSubmitted), ShouldBeFalse)
			So(model.EvidenceTerminal(model.EvidencePendingValidation), ShouldBeFalse)
			So(model.EvidenceTerminal(model.EvidenceSuspended), ShouldBeFalse)
		})

		Convey("Then editability covers only pre-decision states", func() {
			So(model.EvidenceEditable(model.EvidenceSubmitted), ShouldBeTrue)
			So(model.EvidenceEditable(model.EvidencePendingValidation), ShouldBeTrue)
			So(model.EvidenceEditable(model.EvidenceSuspended), ShouldBeFalse)
			So(model.EvidenceEditable(model.EvidenceValidated), ShouldBeFalse)
			So(model.EvidenceEditable(model.EvidenceRejected), ShouldBeFalse)
		})
	})
}

func TestAssignmentTransitions(t *testing.T) {
	Convey("Given the assignment state table", t, func() {
		Convey("When checking the happy path", func() {
			So(model.CanTransitionAssignment(model.AssignmentPending, model.AssignmentAccepted), ShouldBeTrue)
			So(model.CanTransitionAssignment(model.AssignmentAccepted, model.AssignmentInProgress), ShouldBeTrue)
			So(model.CanTransitionAssignment(model.AssignmentInProgress, model.AssignmentCompleted), ShouldBeTrue)
		})

		Convey("When checking rejection and expiry", func() {
			So(model.CanTransitionAssignment(model.AssignmentPending, model.AssignmentRejected), ShouldBeTrue)
			So(model.CanTransitionAssignment(model.AssignmentPending, model.AssignmentExpired), ShouldBeTrue)
			So(model.CanTransitionAssignment(model.AssignmentAccepted, model.AssignmentExpired), ShouldBeTrue)
			So(model.CanTransitionAssignment(model.AssignmentInProgress, model.AssignmentExpired), ShouldBeTrue)
		})

		Convey("When checking illegal moves", func() {
			So(model.CanTransitionAssignment(model.AssignmentPending, model.AssignmentCompleted), ShouldBeFalse)
			So(model.CanTransitionAssignment(model.AssignmentAccepted, model.AssignmentRejected), ShouldBeFalse)
			So(model.CanTransitionAssignment(model.AssignmentCompleted, model.AssignmentPending), ShouldBeFalse)
			So(model.CanTransitionAssignment(model.AssignmentExpired, model.AssignmentAccepted), ShouldBeFalse)
		})

		Convey("Then only pre-completion states count as active", func() {
			So(model.AssignmentActive(model.AssignmentPending), ShouldBeTrue)
			So(model.AssignmentActive(model.AssignmentAccepted), ShouldBeTrue)
			So(model.AssignmentActive(model.AssignmentInProgress), ShouldBeTrue)
			So(model.AssignmentActive(model.AssignmentCompleted), ShouldBeFalse)
			So(model.AssignmentActive(model.AssignmentRejected), ShouldBeFalse)
			So(model.AssignmentActive(model.AssignmentCancelled), ShouldBeFalse)
			So(model.AssignmentActive(model.AssignmentExpired), ShouldBeFalse)
		})
	})
}

func TestPriority(t *testing.T) {
	Convey("Given the priority buckets", t, func() {
		Convey("Then weights descend with priority", func() {
			So(model.PriorityUrgent.Weight(), ShouldEqual, 10)
			So(model.PriorityHigh.Weight(), ShouldEqual, 8)
			So(model.PriorityMedium.Weight(), ShouldEqual, 6)
			So(model.PriorityLow.Weight(), ShouldEqual, 4)
			So(model.PriorityMinimal.Weight(), ShouldEqual, 2)
			So(model.Priority("BOGUS").Weight(), ShouldEqual, 0)
		})

		Convey("Then scores map onto buckets at the documented thresholds", func() {
			So(model.PriorityFromScore(1.0), ShouldEqual, model.PriorityUrgent)
			So(model.PriorityFromScore(0.8), ShouldEqual, model.PriorityUrgent)
			So(model.PriorityFromScore(0.79), ShouldEqual, model.PriorityHigh)
			So(model.PriorityFromScore(0.6), ShouldEqual, model.PriorityHigh)
			So(model.PriorityFromScore(0.4), ShouldEqual, model.PriorityMedium)
			So(model.PriorityFromScore(0.2), ShouldEqual, model.PriorityLow)
			So(model.PriorityFromScore(0.19), ShouldEqual, model.PriorityMinimal)
			So(model.PriorityFromScore(0), ShouldEqual, model.PriorityMinimal)
		})
	})
}

func TestIdempotencyTokenExpiry(t *testing.T) {
	Convey("Given an idempotency token", t, func() {
		now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
		tok := model.IdempotencyToken{
			Token:     "tok-1",
			ExpiresAt: now.Add(time.Hour),
		}

		Convey("Then it is live before its TTL", func() {
			So(tok.Expired(now), ShouldBeFalse)
			So(tok.Expired(now.Add(time.Hour)), ShouldBeFalse)
		})

		Convey("Then it is expired past its TTL", func() {
			So(tok.Expired(now.Add(time.Hour+time.Second)), ShouldBeTrue)
		})
	})
}

func TestChallengeDuration(t *testing.T) {
	Convey("Given a challenge window", t, func() {
		c := model.Challenge{
			StartDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 6, 21, 0, 0, 0, 0, time.UTC),
		}

		Convey("Then the duration counts whole days", func() {
			So(c.DurationDays(), ShouldEqual, 20)
		})
	})
}
