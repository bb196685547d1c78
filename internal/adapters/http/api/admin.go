// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/veristep/veristep/internal/domain/model"
)

// AdminHandler registers validators and scoring reference data.
type AdminHandler struct {
	deps Dependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps Dependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// validatorRequest mirrors the schema for POST /validators.
type validatorRequest struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	Specialty         string  `json:"specialty"`
	ExperienceLevel   int     `json:"experience_level"`
	AccuracyScore     float64 `json:"accuracy_score"`
	IsCertified       bool    `json:"is_certified"`
	CertificationDate string  `json:"certification_date"`
	MaxConcurrent     int     `json:"max_concurrent_validations"`
}

// validatorResponse is the wire shape for validators.
type validatorResponse struct {
	ID                string  `json:"id"`
	UserID            string  `json:"user_id"`
	Status            string  `json:"status"`
	Specialty         string  `json:"specialty"`
	ExperienceLevel   int     `json:"experience_level"`
	AccuracyScore     float64 `json:"accuracy_score"`
	IsCertified       bool    `json:"is_certified"`
	CertificationDate string  `json:"certification_date"`
	TotalValidations  int     `json:"total_validations"`
	MaxConcurrent     int     `json:"max_concurrent_validations"`
}

func toValidatorResponse(v model.Validator) validatorResponse {
	return validatorResponse{
		ID:                v.ID,
		UserID:            v.UserID,
		Status:            string(v.Status),
		Specialty:         v.Specialty,
		ExperienceLevel:   v.ExperienceLevel,
		AccuracyScore:     v.AccuracyScore,
		IsCertified:       v.IsCertified,
		CertificationDate: v.CertificationDate.Format(timeFormat),
		TotalValidations:  v.TotalValidations,
		MaxConcurrent:     v.MaxConcurrentValidations,
	}
}

// HandlePostValidator handles POST /validators requests.
func (h *AdminHandler) HandlePostValidator(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req validatorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing user_id"))
		return
	}

	certDate := time.Time{}
	if req.CertificationDate != "" {
		t, err := time.Parse(timeFormat, req.CertificationDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid certification_date; must be RFC3339"))
			return
		}
		certDate = t
	}

	v, err := h.deps.RegisterValidator(r.Context(), model.Validator{
		ID:                       req.ID,
		UserID:                   req.UserID,
		Specialty:                req.Specialty,
		ExperienceLevel:          req.ExperienceLevel,
		AccuracyScore:            req.AccuracyScore,
		IsCertified:              req.IsCertified,
		CertificationDate:        certDate,
		MaxConcurrentValidations: req.MaxConcurrent,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toValidatorResponse(v))
}

// HandleValidatorByID handles GET /validators/{id} requests.
func (h *AdminHandler) HandleValidatorByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/validators/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing validator id"))
		return
	}
	v, err := h.deps.GetValidator(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toValidatorResponse(v))
}

// challengeRequest mirrors the schema for POST /challenges.
type challengeRequest struct {
	ID              string `json:"id"`
	Category        string `json:"category"`
	DifficultyLevel int    `json:"difficulty_level"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	IsPublic        bool   `json:"is_public"`
	CreatorID       string `json:"creator_id"`
}

// HandlePostChallenge handles POST /challenges requests.
func (h *AdminHandler) HandlePostChallenge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req challengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	start, err := time.Parse(timeFormat, req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid start_date; must be RFC3339"))
		return
	}
	end, err := time.Parse(timeFormat, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid end_date; must be RFC3339"))
		return
	}

	if err := h.deps.AddChallenge(r.Context(), model.Challenge{
		ID:              req.ID,
		Category:        req.Category,
		DifficultyLevel: req.DifficultyLevel,
		StartDate:       start,
		EndDate:         end,
		IsPublic:        req.IsPublic,
		CreatorID:       req.CreatorID,
	}); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID, "status": "created"})
}

// userRequest mirrors the schema for POST /users.
type userRequest struct {
	ID           string `json:"id"`
	RegisteredAt string `json:"registered_at"`
	LastLoginAt  string `json:"last_login_at"`
}

// HandlePostUser handles POST /users requests.
func (h *AdminHandler) HandlePostUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	u := model.User{ID: req.ID}
	if req.RegisteredAt != "" {
		t, err := time.Parse(timeFormat, req.RegisteredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid registered_at; must be RFC3339"))
			return
		}
		u.RegisteredAt = t
	}
	if req.LastLoginAt != "" {
		t, err := time.Parse(timeFormat, req.LastLoginAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errors.New("invalid last_login_at; must be RFC3339"))
			return
		}
		u.LastLoginAt = t
	}

	if err := h.deps.AddUser(r.Context(), u); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": u.ID, "status": "created"})
}
