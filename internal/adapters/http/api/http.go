// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/veristep/veristep/internal/adapters/repository"
	"github.com/veristep/veristep/internal/domain/lifecycle"
	"github.com/veristep/veristep/internal/domain/model"
	"github.com/veristep/veristep/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Evidence intake and lifecycle.
	SubmitEvidence(ctx context.Context, token string, in model.EvidenceSubmission) (model.Evidence, bool, error)
	GetEvidence(ctx context.Context, id string) (model.Evidence, error)
	UpdateEvidence(ctx context.Context, id string, patch lifecycle.Patch) (model.Evidence, error)
	DeleteEvidence(ctx context.Context, id, reason string) (model.Evidence, error)
	SuspendEvidence(ctx context.Context, id string) (model.Evidence, error)
	ReinstateEvidence(ctx context.Context, id string) (model.Evidence, error)

	// Validator assignment.
	AssignValidator(ctx context.Context, evidenceID string) (model.Assignment, error)
	GetAssignment(ctx context.Context, id string) (model.Assignment, error)
	AcceptAssignment(ctx context.Context, id string) (model.Assignment, error)
	StartAssignment(ctx context.Context, id string) (model.Assignment, error)
	RejectAssignment(ctx context.Context, id string) (model.Assignment, error)
	CancelAssignment(ctx context.Context, id string) (model.Assignment, error)
	SubmitDecision(ctx context.Context, assignmentID string, in model.ReviewSubmission) (model.Validation, model.Evidence, error)

	// Scoring reads.
	ComputeCPS(ctx context.Context, challengeID string) (scoring.CPSBreakdown, error)
	ComputeERSS(ctx context.Context, validationID string) (scoring.ERSSBreakdown, error)
	ComputeUCI(ctx context.Context, userID string) (scoring.UCIBreakdown, error)
	ComputeValidatorTrust(ctx context.Context, validatorID string) (scoring.TrustBreakdown, error)

	// Review queue reads.
	ReviewQueue(ctx context.Context, n int) []repository.QueueEntry

	// Reference data registration.
	RegisterValidator(ctx context.Context, v model.Validator) (model.Validator, error)
	GetValidator(ctx context.Context, id string) (model.Validator, error)
	AddChallenge(ctx context.Context, c model.Challenge) error
	AddUser(ctx context.Context, u model.User) error
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats(ctx context.Context) map[string]any
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	evidenceHandler    *EvidenceHandler
	assignmentHandler  *AssignmentHandler
	scoresHandler      *ScoresHandler
	reviewQueueHandler *ReviewQueueHandler
	adminHandler       *AdminHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		evidenceHandler:    NewEvidenceHandler(deps),
		assignmentHandler:  NewAssignmentHandler(deps),
		scoresHandler:      NewScoresHandler(deps),
		reviewQueueHandler: NewReviewQueueHandler(deps),
		adminHandler:       NewAdminHandler(deps),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxQueueLimit caps GET /review-queue?limit.
func WithMaxQueueLimit(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.reviewQueueHandler.maxLimit = n
		}
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/evidence", MetricsMiddleware(s.evidenceHandler.HandlePostEvidence, "evidence"))
	mux.HandleFunc("/evidence/", MetricsMiddleware(s.evidenceHandler.HandleEvidenceByID, "evidence_id"))
	mux.HandleFunc("/assignments/", MetricsMiddleware(s.assignmentHandler.HandleAssignmentByID, "assignment_id"))
	mux.HandleFunc("/scores/", MetricsMiddleware(s.scoresHandler.HandleGetScore, "scores"))
	mux.HandleFunc("/review-queue", MetricsMiddleware(s.reviewQueueHandler.HandleGetQueue, "review_queue"))
	mux.HandleFunc("/validators", MetricsMiddleware(s.adminHandler.HandlePostValidator, "validators"))
	mux.HandleFunc("/validators/", MetricsMiddleware(s.adminHandler.HandleValidatorByID, "validator_id"))
	mux.HandleFunc("/challenges", MetricsMiddleware(s.adminHandler.HandlePostChallenge, "challenges"))
	mux.HandleFunc("/users", MetricsMiddleware(s.adminHandler.HandlePostUser, "users"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError maps sentinel domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, model.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", err)
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, model.ErrExpired):
		writeError(w, http.StatusGone, "expired", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
