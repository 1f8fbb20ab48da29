package repositories

import (
	"context"

	"quill/internal/domain/models"
)

// EditRepository defines gateway access to the per-document edit log.
type EditRepository interface {
	// Create persists an accepted edit.
	Create(ctx context.Context, edit *models.DocumentEdit) error

	// ListByDocument returns all edits for a document ordered by
	// (version, timestamp, id) ascending.
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentEdit, error)

	// Delete removes an edit from the log (structural undo).
	Delete(ctx context.Context, editID string) error
}
