package handler

import (
	"log/slog"
	"net/http"

	"quill/internal/domain/services"
	"quill/internal/httputil"
)

// LockHandler handles lock HTTP requests
type LockHandler struct {
	engine services.Engine
	logger *slog.Logger
}

// NewLockHandler creates a new lock handler
func NewLockHandler(engine services.Engine, logger *slog.Logger) *LockHandler {
	return &LockHandler{
		engine: engine,
		logger: logger,
	}
}

// Acquire takes an exclusive or section lock
// POST /api/documents/{id}/lock
// Returns 409 when the scope is already held by someone else.
func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req services.AcquireLockRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	lock, err := h.engine.AcquireLock(r.Context(), documentID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, lock)
}

// Release releases the caller's lock for the given scope
// DELETE /api/documents/{id}/lock
func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req struct {
		UserID  string  `json:"user_id"`
		Section *string `json:"section,omitempty"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.UserID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	if err := h.engine.ReleaseLock(r.Context(), documentID, req.UserID, req.Section); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Check returns the current non-expired locks
// GET /api/documents/{id}/lock
func (h *LockHandler) Check(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	locks, err := h.engine.CheckLock(r.Context(), documentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"locked": len(locks) > 0,
		"locks":  locks,
	})
}
