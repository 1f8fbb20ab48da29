package handler

import (
	"log/slog"
	"net/http"

	"quill/internal/domain/models"
	"quill/internal/domain/services"
	"quill/internal/httputil"
)

// PresenceHandler handles presence HTTP requests
type PresenceHandler struct {
	engine services.Engine
	logger *slog.Logger
}

// NewPresenceHandler creates a new presence handler
func NewPresenceHandler(engine services.Engine, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{
		engine: engine,
		logger: logger,
	}
}

// Update merges partial cursor state and refreshes the activity timestamp
// PUT /api/documents/{id}/presence/{userID}
func (h *PresenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	userID := r.PathValue("userID")
	if documentID == "" || userID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID and user ID are required")
		return
	}

	var update models.PresenceUpdate
	if err := httputil.ParseJSON(w, r, &update); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	presence, err := h.engine.UpdatePresence(r.Context(), documentID, userID, &update)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, presence)
}

// ListActive returns presence records inside the freshness window
// GET /api/documents/{id}/presence
func (h *PresenceHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	users, err := h.engine.GetActiveUsers(r.Context(), documentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, users)
}
