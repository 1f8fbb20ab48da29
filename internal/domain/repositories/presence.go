package repositories

import (
	"context"
	"time"

	"quill/internal/domain/models"
)

// PresenceRepository defines gateway access to ephemeral per-user presence.
// Records expire with the freshness window; ListByDocument may return rows
// slightly past it, so callers re-filter at read time.
type PresenceRepository interface {
	// Upsert writes the full presence record, refreshing its expiry.
	Upsert(ctx context.Context, presence *models.UserPresence, window time.Duration) error

	// Get retrieves a single presence record, or domain.ErrNotFound.
	Get(ctx context.Context, documentID, userID string) (*models.UserPresence, error)

	// ListByDocument returns presence records for a document.
	ListByDocument(ctx context.Context, documentID string) ([]models.UserPresence, error)

	// Remove deletes a presence record (user left).
	Remove(ctx context.Context, documentID, userID string) error
}
