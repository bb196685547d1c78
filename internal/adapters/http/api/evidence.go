// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/veristep/veristep/internal/domain/lifecycle"
	"github.com/veristep/veristep/internal/domain/model"
)

// idempotencyHeader carries the client-supplied submission token.
const idempotencyHeader = "Idempotency-Key"

// EvidenceHandler handles evidence intake and lifecycle requests.
type EvidenceHandler struct {
	deps Dependencies
}

// NewEvidenceHandler creates a new evidence handler.
func NewEvidenceHandler(deps Dependencies) *EvidenceHandler {
	return &EvidenceHandler{deps: deps}
}

// evidenceRequest mirrors the schema for POST /evidence.
type evidenceRequest struct {
	UserID      string `json:"user_id"`
	ChallengeID string `json:"challenge_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FileURL     string `json:"file_url"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	MimeType    string `json:"mime_type"`
}

func (e evidenceRequest) validate() error {
	switch {
	case strings.TrimSpace(e.UserID) == "":
		return errors.New("missing user_id")
	case strings.TrimSpace(e.ChallengeID) == "":
		return errors.New("missing challenge_id")
	case strings.TrimSpace(e.Type) == "":
		return errors.New("missing type")
	}
	return nil
}

// evidenceResponse is the wire shape for stored evidence.
type evidenceResponse struct {
	ID                 string  `json:"id"`
	UserID             string  `json:"user_id"`
	ChallengeID        string  `json:"challenge_id"`
	Type               string  `json:"type"`
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	Status             string  `json:"status"`
	SubmissionDate     string  `json:"submission_date"`
	ValidationDeadline *string `json:"validation_deadline,omitempty"`
	FileURL            string  `json:"file_url,omitempty"`
	FileName           string  `json:"file_name,omitempty"`
	FileSize           int64   `json:"file_size,omitempty"`
	MimeType           string  `json:"mime_type,omitempty"`
	ReassignCount      int     `json:"reassign_count"`
	Escalated          bool    `json:"escalated"`
	Duplicate          bool    `json:"duplicate,omitempty"`
}

func toEvidenceResponse(ev model.Evidence, duplicate bool) evidenceResponse {
	resp := evidenceResponse{
		ID:             ev.ID,
		UserID:         ev.UserID,
		ChallengeID:    ev.ChallengeID,
		Type:           ev.Type,
		Title:          ev.Title,
		Description:    ev.Description,
		Status:         string(ev.Status),
		SubmissionDate: ev.SubmissionDate.Format(timeFormat),
		FileURL:        ev.FileURL,
		FileName:       ev.FileName,
		FileSize:       ev.FileSize,
		MimeType:       ev.MimeType,
		ReassignCount:  ev.ReassignCount,
		Escalated:      ev.Escalated,
		Duplicate:      duplicate,
	}
	if ev.ValidationDeadline != nil {
		s := ev.ValidationDeadline.Format(timeFormat)
		resp.ValidationDeadline = &s
	}
	return resp
}

// HandlePostEvidence handles POST /evidence requests.
func (h *EvidenceHandler) HandlePostEvidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	// An absent token is allowed; such submissions skip deduplication.
	token := strings.TrimSpace(r.Header.Get(idempotencyHeader))

	var req evidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	ev, replayed, err := h.deps.SubmitEvidence(r.Context(), token, model.EvidenceSubmission{
		UserID:      req.UserID,
		ChallengeID: req.ChallengeID,
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, toEvidenceResponse(ev, replayed))
}

// patchRequest mirrors the schema for PATCH /evidence/{id}.
type patchRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	FileURL     *string `json:"file_url"`
	FileName    *string `json:"file_name"`
	FileSize    *int64  `json:"file_size"`
	MimeType    *string `json:"mime_type"`
}

// HandleEvidenceByID routes /evidence/{id} and its sub-actions.
func (h *EvidenceHandler) HandleEvidenceByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/evidence/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing evidence id"))
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case action == "" && r.Method == http.MethodPatch:
		h.handlePatch(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case action == "assign" && r.Method == http.MethodPost:
		h.handleAssign(w, r, id)
	case action == "suspend" && r.Method == http.MethodPost:
		h.handleSuspend(w, r, id)
	case action == "reinstate" && r.Method == http.MethodPost:
		h.handleReinstate(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *EvidenceHandler) handleGet(w http.ResponseWriter, r *http.Request, id string) {
	ev, err := h.deps.GetEvidence(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceResponse(ev, false))
}

func (h *EvidenceHandler) handlePatch(w http.ResponseWriter, r *http.Request, id string) {
	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	ev, err := h.deps.UpdateEvidence(r.Context(), id, lifecycle.Patch{
		Title:       req.Title,
		Description: req.Description,
		FileURL:     req.FileURL,
		FileName:    req.FileName,
		FileSize:    req.FileSize,
		MimeType:    req.MimeType,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceResponse(ev, false))
}

func (h *EvidenceHandler) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	reason := r.URL.Query().Get("reason")
	ev, err := h.deps.DeleteEvidence(r.Context(), id, reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceResponse(ev, false))
}

func (h *EvidenceHandler) handleAssign(w http.ResponseWriter, r *http.Request, id string) {
	a, err := h.deps.AssignValidator(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentResponse(a))
}

func (h *EvidenceHandler) handleSuspend(w http.ResponseWriter, r *http.Request, id string) {
	ev, err := h.deps.SuspendEvidence(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceResponse(ev, false))
}

func (h *EvidenceHandler) handleReinstate(w http.ResponseWriter, r *http.Request, id string) {
	ev, err := h.deps.ReinstateEvidence(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEvidenceResponse(ev, false))
}
