// Package handlers provides HTTP handlers for summary snapshots.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/internal/auth"
	"github.com/aristath/folio/internal/modules/snapshots"
)

// maxLimit caps the number of snapshots one request may return
const maxLimit = 1000

// Handler handles snapshot HTTP requests
type Handler struct {
	repo *snapshots.Repository
	log  zerolog.Logger
}

// NewHandler creates a new snapshot handler
func NewHandler(repo *snapshots.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "snapshots").Logger(),
	}
}

// HandleListSnapshots returns the user's snapshot history, newest first
// Query: limit (default 30, max 1000)
func (h *Handler) HandleListSnapshots(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	limit := snapshots.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	history, err := h.repo.List(r.Context(), userID, limit)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to list snapshots")
		h.writeError(w, http.StatusInternalServerError, "failed to list snapshots")
		return
	}

	h.writeJSON(w, http.StatusOK, history)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
