package repositories

import (
	"context"

	"quill/internal/domain/models"
)

// CommentRepository defines gateway access to threaded document comments.
// There is deliberately no Delete: comment history is the audit trail.
type CommentRepository interface {
	// Create persists a new comment or reply.
	Create(ctx context.Context, comment *models.DocumentComment) error

	// GetByID retrieves a comment.
	GetByID(ctx context.Context, commentID string) (*models.DocumentComment, error)

	// ListByDocument returns all comments for a document ordered by
	// created_at ascending.
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentComment, error)

	// Resolve marks a comment resolved by the given user. Resolution is
	// monotonic; resolving an already-resolved comment is a no-op.
	Resolve(ctx context.Context, commentID, resolvedBy string) error
}
