// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
)

// defaultQueueLimit applies when GET /review-queue omits limit.
const defaultQueueLimit = 20

// ReviewQueueHandler serves the ordered review backlog.
type ReviewQueueHandler struct {
	deps     Dependencies
	maxLimit int
}

// NewReviewQueueHandler creates a new review queue handler.
func NewReviewQueueHandler(deps Dependencies) *ReviewQueueHandler {
	return &ReviewQueueHandler{deps: deps, maxLimit: 100}
}

// HandleGetQueue handles GET /review-queue?limit=N requests.
func (h *ReviewQueueHandler) HandleGetQueue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	n := defaultQueueLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, h.deps.ReviewQueue(r.Context(), n))
}
