package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
)

// PresenceStore implements repositories.PresenceRepository on redis.
// Records live at "presence:{doc}:{user}" with TTL equal to the freshness
// window, so a user who stops heartbeating simply ages out. Readers still
// re-filter by last_active; the TTL is cleanup, not the source of truth.
type PresenceStore struct {
	client *redis.Client
	prefix string
}

// NewPresenceStore creates a redis-backed presence store.
func NewPresenceStore(client *redis.Client) repositories.PresenceRepository {
	return &PresenceStore{
		client: client,
		prefix: "presence:",
	}
}

func (s *PresenceStore) key(documentID, userID string) string {
	return s.prefix + keyPart(documentID) + ":" + keyPart(userID)
}

func (s *PresenceStore) pattern(documentID string) string {
	return s.prefix + keyPart(documentID) + ":*"
}

// Upsert writes the full presence record and refreshes its expiry.
func (s *PresenceStore) Upsert(ctx context.Context, presence *models.UserPresence, window time.Duration) error {
	payload, err := json.Marshal(presence)
	if err != nil {
		return fmt.Errorf("marshal presence: %w", err)
	}

	key := s.key(presence.DocumentID, presence.UserID)
	if err := s.client.Set(ctx, key, payload, window).Err(); err != nil {
		return fmt.Errorf("%w: save presence: %v", domain.ErrGatewayUnavailable, err)
	}

	return nil
}

// Get retrieves a single presence record.
func (s *PresenceStore) Get(ctx context.Context, documentID, userID string) (*models.UserPresence, error) {
	raw, err := s.client.Get(ctx, s.key(documentID, userID)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("presence for user %s on document %s: %w", userID, documentID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read presence: %v", domain.ErrGatewayUnavailable, err)
	}

	var presence models.UserPresence
	if err := json.Unmarshal([]byte(raw), &presence); err != nil {
		return nil, fmt.Errorf("unmarshal presence: %w", err)
	}

	return &presence, nil
}

// ListByDocument returns all presence records for a document.
func (s *PresenceStore) ListByDocument(ctx context.Context, documentID string) ([]models.UserPresence, error) {
	keys, err := s.client.Keys(ctx, s.pattern(documentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: scan presence: %v", domain.ErrGatewayUnavailable, err)
	}

	var records []models.UserPresence
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Aged out between scan and read
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read presence: %v", domain.ErrGatewayUnavailable, err)
		}

		var presence models.UserPresence
		if err := json.Unmarshal([]byte(raw), &presence); err != nil {
			return nil, fmt.Errorf("unmarshal presence: %w", err)
		}
		records = append(records, presence)
	}

	return records, nil
}

// Remove deletes a presence record.
func (s *PresenceStore) Remove(ctx context.Context, documentID, userID string) error {
	if err := s.client.Del(ctx, s.key(documentID, userID)).Err(); err != nil {
		return fmt.Errorf("%w: remove presence: %v", domain.ErrGatewayUnavailable, err)
	}
	return nil
}
