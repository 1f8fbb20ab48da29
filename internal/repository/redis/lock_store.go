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

// LockStore implements repositories.LockRepository on redis.
//
// A whole-document lock lives at "lock:{doc}", section locks at
// "lock:{doc}:s:{section}", with IDs escaped via keyPart. Key TTL is the
// lease: once it lapses the lock reads back as absent, which is exactly
// the passive-expiry contract.
//
// The scope check (whole vs section) and the SetNX are two steps; callers
// serialize acquisitions per document, which the engine does through its
// per-session mutex.
type LockStore struct {
	client *redis.Client
	prefix string
}

// NewLockStore creates a redis-backed lock store.
func NewLockStore(client *redis.Client) repositories.LockRepository {
	return &LockStore{
		client: client,
		prefix: "lock:",
	}
}

func (s *LockStore) wholeKey(documentID string) string {
	return s.prefix + keyPart(documentID)
}

func (s *LockStore) sectionKey(documentID, section string) string {
	return s.prefix + keyPart(documentID) + ":s:" + keyPart(section)
}

func (s *LockStore) sectionPattern(documentID string) string {
	return s.prefix + keyPart(documentID) + ":s:*"
}

// Acquire takes the lock for the requested scope, or fails with
// domain.ErrLockConflict when a conflicting live lock exists.
func (s *LockStore) Acquire(ctx context.Context, lock *models.DocumentLock, ttl time.Duration) error {
	// Whole-document and section locks are mutually exclusive
	if lock.Section == nil {
		sections, err := s.client.Keys(ctx, s.sectionPattern(lock.DocumentID)).Result()
		if err != nil {
			return fmt.Errorf("%w: scan section locks: %v", domain.ErrGatewayUnavailable, err)
		}
		if len(sections) > 0 {
			return fmt.Errorf("document %s has live section locks: %w", lock.DocumentID, domain.ErrLockConflict)
		}
	} else {
		held, err := s.client.Exists(ctx, s.wholeKey(lock.DocumentID)).Result()
		if err != nil {
			return fmt.Errorf("%w: check document lock: %v", domain.ErrGatewayUnavailable, err)
		}
		if held > 0 {
			return fmt.Errorf("document %s is locked whole: %w", lock.DocumentID, domain.ErrLockConflict)
		}
	}

	key := s.wholeKey(lock.DocumentID)
	if lock.Section != nil {
		key = s.sectionKey(lock.DocumentID, *lock.Section)
	}

	payload, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("marshal lock: %w", err)
	}

	ok, err := s.client.SetNX(ctx, key, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: acquire lock: %v", domain.ErrGatewayUnavailable, err)
	}
	if !ok {
		return fmt.Errorf("scope already locked on document %s: %w", lock.DocumentID, domain.ErrLockConflict)
	}

	return nil
}

// Release removes the holder's lock for the given scope.
func (s *LockStore) Release(ctx context.Context, documentID, userID string, section *string) error {
	key := s.wholeKey(documentID)
	if section != nil {
		key = s.sectionKey(documentID, *section)
	}

	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return fmt.Errorf("no live lock on document %s: %w", documentID, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: read lock: %v", domain.ErrGatewayUnavailable, err)
	}

	var lock models.DocumentLock
	if err := json.Unmarshal([]byte(raw), &lock); err != nil {
		return fmt.Errorf("unmarshal lock: %w", err)
	}

	if lock.LockedBy != userID {
		return &domain.LockedError{
			DocumentID: documentID,
			HeldBy:     lock.LockedBy,
			HeldByName: lock.LockedByName,
			Section:    lock.Section,
		}
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: release lock: %v", domain.ErrGatewayUnavailable, err)
	}

	return nil
}

// Get returns the live locks on a document, whole-document lock first.
func (s *LockStore) Get(ctx context.Context, documentID string) ([]models.DocumentLock, error) {
	keys := []string{s.wholeKey(documentID)}

	sectionKeys, err := s.client.Keys(ctx, s.sectionPattern(documentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: scan section locks: %v", domain.ErrGatewayUnavailable, err)
	}
	keys = append(keys, sectionKeys...)

	var locks []models.DocumentLock
	for _, key := range keys {
		raw, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			// Expired between scan and read; treat as unlocked
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read lock: %v", domain.ErrGatewayUnavailable, err)
		}

		var lock models.DocumentLock
		if err := json.Unmarshal([]byte(raw), &lock); err != nil {
			return nil, fmt.Errorf("unmarshal lock: %w", err)
		}
		locks = append(locks, lock)
	}

	return locks, nil
}
