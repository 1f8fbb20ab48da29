package handler

import (
	"log/slog"
	"net/http"

	"quill/internal/domain/services"
	"quill/internal/httputil"
)

// SessionHandler handles session lifecycle and participant HTTP requests
type SessionHandler struct {
	engine services.Engine
	logger *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(engine services.Engine, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		engine: engine,
		logger: logger,
	}
}

// Join registers a participant in a document session
// POST /api/documents/{id}/join
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req services.JoinRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	presence, err := h.engine.Join(r.Context(), documentID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, presence)
}

// Leave removes a participant from a document session
// POST /api/documents/{id}/leave
func (h *SessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := h.engine.Leave(r.Context(), documentID, req.UserID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Snapshot returns a read-only view of the live session
// GET /api/documents/{id}/session
func (h *SessionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	snapshot, err := h.engine.Snapshot(r.Context(), documentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, snapshot)
}

// Sync retries persisting edits buffered while the gateway was unreachable
// POST /api/documents/{id}/sync
func (h *SessionHandler) Sync(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if err := h.engine.Sync(r.Context(), documentID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Close passivates an idle session
// POST /api/documents/{id}/close
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	if err := h.engine.CloseSession(r.Context(), documentID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
