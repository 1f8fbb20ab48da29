package repositories

import (
	"context"

	"quill/internal/domain/models"
)

// VersionRepository defines gateway access to immutable document snapshots.
type VersionRepository interface {
	// Create persists a new snapshot. Fails if the (document, version)
	// pair already exists.
	Create(ctx context.Context, version *models.DocumentVersion) error

	// GetByID retrieves a snapshot.
	GetByID(ctx context.Context, versionID string) (*models.DocumentVersion, error)

	// ListByDocument returns all snapshots for a document ordered by
	// version ascending.
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error)
}
