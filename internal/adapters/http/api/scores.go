// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"errors"
	"net/http"
	"strings"
)

// ScoresHandler serves score breakdown reads.
type ScoresHandler struct {
	deps Dependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps Dependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleGetScore routes GET /scores/{kind}/{id}.
func (h *ScoresHandler) HandleGetScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/scores/")
	kind, id, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", errors.New("missing subject id"))
		return
	}

	switch kind {
	case "cps":
		bd, err := h.deps.ComputeCPS(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bd)
	case "erss":
		bd, err := h.deps.ComputeERSS(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bd)
	case "uci":
		bd, err := h.deps.ComputeUCI(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bd)
	case "trust":
		bd, err := h.deps.ComputeValidatorTrust(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bd)
	default:
		http.NotFound(w, r)
	}
}
