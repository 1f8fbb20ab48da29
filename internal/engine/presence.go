package engine

import (
	"context"
	"fmt"

	"quill/internal/domain"
	"quill/internal/domain/models"
)

// UpdatePresence merges partial cursor state into the user's presence record
// and refreshes last_active. The user must have joined first.
func (e *Engine) UpdatePresence(ctx context.Context, documentID, userID string, update *models.PresenceUpdate) (*models.UserPresence, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}
	if update == nil {
		update = &models.PresenceUpdate{}
	}

	if _, err := e.ensure(ctx, documentID); err != nil {
		return nil, err
	}

	presence, err := e.presence.Get(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}

	presence.Apply(update, e.now())
	if err := e.presence.Upsert(ctx, presence, e.opts.PresenceWindow); err != nil {
		return nil, err
	}

	return presence, nil
}

// GetActiveUsers returns the presence records inside the freshness window,
// recomputed at call time rather than trusting any background sweep.
func (e *Engine) GetActiveUsers(ctx context.Context, documentID string) ([]models.UserPresence, error) {
	if _, err := e.ensure(ctx, documentID); err != nil {
		return nil, err
	}
	return e.activeUsers(ctx, documentID)
}

// activeUsers reads and filters presence without touching session state.
func (e *Engine) activeUsers(ctx context.Context, documentID string) ([]models.UserPresence, error) {
	records, err := e.presence.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	active := records[:0]
	for i := range records {
		if records[i].IsActive(now, e.opts.PresenceWindow) {
			active = append(active, records[i])
		}
	}
	return active, nil
}
