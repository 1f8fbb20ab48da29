package handler

import (
	"log/slog"
	"net/http"

	"quill/internal/domain/services"
	"quill/internal/httputil"
)

// VersionHandler handles version snapshot HTTP requests
type VersionHandler struct {
	engine services.Engine
	logger *slog.Logger
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(engine services.Engine, logger *slog.Logger) *VersionHandler {
	return &VersionHandler{
		engine: engine,
		logger: logger,
	}
}

// Create cuts an immutable snapshot at the next version number
// POST /api/documents/{id}/versions
func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req services.CreateVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	version, err := h.engine.CreateVersion(r.Context(), documentID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}

// List returns snapshots in ascending version order
// GET /api/documents/{id}/versions
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	versions, err := h.engine.LoadVersionHistory(r.Context(), documentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// Restore appends a new version copying a historical snapshot's content
// POST /api/documents/{id}/versions/{versionID}/restore
func (h *VersionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	versionID := r.PathValue("versionID")
	if documentID == "" || versionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID and version ID are required")
		return
	}

	var req services.RestoreVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	version, err := h.engine.RestoreVersion(r.Context(), documentID, versionID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, version)
}
