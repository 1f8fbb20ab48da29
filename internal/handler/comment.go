package handler

import (
	"log/slog"
	"net/http"

	"quill/internal/domain/services"
	"quill/internal/httputil"
)

// CommentHandler handles comment HTTP requests
type CommentHandler struct {
	engine services.Engine
	logger *slog.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(engine services.Engine, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		engine: engine,
		logger: logger,
	}
}

// Add anchors a new root comment to a content offset
// POST /api/documents/{id}/comments
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	var req services.AddCommentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.engine.AddComment(r.Context(), documentID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// Reply adds a threaded reply to an existing comment
// POST /api/documents/{id}/comments/{commentID}/replies
func (h *CommentHandler) Reply(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	commentID := r.PathValue("commentID")
	if documentID == "" || commentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID and comment ID are required")
		return
	}

	var req services.AddCommentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	comment, err := h.engine.ReplyToComment(r.Context(), documentID, commentID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, comment)
}

// Resolve marks a comment resolved
// POST /api/documents/{id}/comments/{commentID}/resolve
func (h *CommentHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	commentID := r.PathValue("commentID")
	if documentID == "" || commentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID and comment ID are required")
		return
	}

	var req struct {
		ResolvedBy string `json:"resolved_by"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ResolvedBy == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Resolver user ID is required")
		return
	}

	if err := h.engine.ResolveComment(r.Context(), documentID, commentID, req.ResolvedBy); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List returns all comments for a document
// GET /api/documents/{id}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")
	if documentID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	comments, err := h.engine.LoadComments(r.Context(), documentID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, comments)
}
