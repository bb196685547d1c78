// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/veristep/veristep/internal/domain/model"
)

// timeFormat is the wire format for timestamps.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// AssignmentHandler handles assignment workflow requests.
type AssignmentHandler struct {
	deps Dependencies
}

// NewAssignmentHandler creates a new assignment handler.
func NewAssignmentHandler(deps Dependencies) *AssignmentHandler {
	return &AssignmentHandler{deps: deps}
}

// assignmentResponse is the wire shape for assignments.
type assignmentResponse struct {
	ID          string  `json:"id"`
	EvidenceID  string  `json:"evidence_id"`
	ValidatorID string  `json:"validator_id"`
	Status      string  `json:"status"`
	Priority    int     `json:"priority"`
	AssignedAt  string  `json:"assigned_at"`
	AcceptedAt  *string `json:"accepted_at,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty"`
	Deadline    string  `json:"deadline"`
	Confidence  int     `json:"confidence_level,omitempty"`
	TimeSpent   int     `json:"time_spent_minutes,omitempty"`
}

func toAssignmentResponse(a model.Assignment) assignmentResponse {
	resp := assignmentResponse{
		ID:          a.ID,
		EvidenceID:  a.EvidenceID,
		ValidatorID: a.ValidatorID,
		Status:      string(a.Status),
		Priority:    a.Priority,
		AssignedAt:  a.AssignedAt.Format(timeFormat),
		Deadline:    a.Deadline.Format(timeFormat),
		Confidence:  a.ConfidenceLevel,
		TimeSpent:   a.TimeSpentMinutes,
	}
	if a.AcceptedAt != nil {
		s := a.AcceptedAt.Format(timeFormat)
		resp.AcceptedAt = &s
	}
	if a.CompletedAt != nil {
		s := a.CompletedAt.Format(timeFormat)
		resp.CompletedAt = &s
	}
	return resp
}

// decisionRequest mirrors the schema for POST /assignments/{id}/decision.
type decisionRequest struct {
	Decision         string  `json:"decision"`
	Score            float64 `json:"score"`
	Feedback         string  `json:"feedback"`
	TimeTakenSeconds int     `json:"time_taken_seconds"`
	Confidence       int     `json:"confidence_level"`
}

// decisionResponse pairs the recorded validation with the evidence state
// after the verdict.
type decisionResponse struct {
	Validation validationResponse `json:"validation"`
	Evidence   evidenceResponse   `json:"evidence"`
}

type validationResponse struct {
	ID               string  `json:"id"`
	EvidenceID       string  `json:"evidence_id"`
	ValidatorID      string  `json:"validator_id"`
	Decision         string  `json:"decision"`
	Score            float64 `json:"score"`
	Feedback         string  `json:"feedback,omitempty"`
	TimeTakenSeconds int     `json:"time_taken_seconds"`
	ValidatedAt      string  `json:"validated_at"`
}

// HandleAssignmentByID routes /assignments/{id} and its sub-actions.
func (h *AssignmentHandler) HandleAssignmentByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/assignments/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing assignment id"))
		return
	}

	if action == "" && r.Method == http.MethodGet {
		a, err := h.deps.GetAssignment(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAssignmentResponse(a))
		return
	}

	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	switch action {
	case "accept":
		h.respond(w, r, func() (model.Assignment, error) {
			return h.deps.AcceptAssignment(r.Context(), id)
		})
	case "start":
		h.respond(w, r, func() (model.Assignment, error) {
			return h.deps.StartAssignment(r.Context(), id)
		})
	case "reject":
		h.respond(w, r, func() (model.Assignment, error) {
			return h.deps.RejectAssignment(r.Context(), id)
		})
	case "cancel":
		h.respond(w, r, func() (model.Assignment, error) {
			return h.deps.CancelAssignment(r.Context(), id)
		})
	case "decision":
		h.handleDecision(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *AssignmentHandler) respond(w http.ResponseWriter, _ *http.Request, fn func() (model.Assignment, error)) {
	a, err := fn()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAssignmentResponse(a))
}

func (h *AssignmentHandler) handleDecision(w http.ResponseWriter, r *http.Request, id string) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	v, ev, err := h.deps.SubmitDecision(r.Context(), id, model.ReviewSubmission{
		Decision:         model.Decision(strings.ToUpper(req.Decision)),
		Score:            req.Score,
		Feedback:         req.Feedback,
		TimeTakenSeconds: req.TimeTakenSeconds,
		Confidence:       req.Confidence,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, decisionResponse{
		Validation: validationResponse{
			ID:               v.ID,
			EvidenceID:       v.EvidenceID,
			ValidatorID:      v.ValidatorID,
			Decision:         string(v.Decision),
			Score:            v.Score,
			Feedback:         v.Feedback,
			TimeTakenSeconds: v.TimeTakenSeconds,
			ValidatedAt:      v.ValidatedAt.Format(timeFormat),
		},
		Evidence: toEvidenceResponse(ev, false),
	})
}
