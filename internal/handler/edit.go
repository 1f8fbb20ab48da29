package handler

import (
	"log/slog"
	"net/http"

	"quill/internal/domain/services"
	"quill/internal/httputil"
)

// EditHandler handles edit HTTP requests
type EditHandler struct {
	engine services.Engine
	logger *slog.Logger
}

// NewEditHandler creates a new edit handler
func NewEditHandler(engine services.Engine, logger *slog.Logger) *EditHandler {
	return &EditHandler{
		engine: engine,
		logger: logger,
	}
}

// ApplyEdit validates, orders, persists, and applies one edit
// POST /api/documents/{id}/edits
// Returns 409 with both edits when a conflict is detected under the
// manual policy, 409 on stale offsets, 423 when locked by another user.
func (h *EditHandler) ApplyEdit(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req services.ApplyEditRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	edit, err := h.engine.ApplyEdit(r.Context(), documentID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, edit)
}

// UndoEdit removes a previously accepted edit from the log
// DELETE /api/documents/{id}/edits/{editID}
func (h *EditHandler) UndoEdit(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	editID := r.PathValue("editID")
	if documentID == "" || editID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID and edit ID are required")
		return
	}

	if err := h.engine.UndoEdit(r.Context(), documentID, editID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Content returns the reconstructed document content
// GET /api/documents/{id}/content
func (h *EditHandler) Content(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	content, err := h.engine.Content(r.Context(), documentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{"content": content})
}
