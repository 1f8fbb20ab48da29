package repositories

import (
	"context"
	"time"

	"quill/internal/domain/models"
)

// LockRepository defines gateway access to document locks.
//
// Acquire is test-and-set: it succeeds immediately or fails immediately with
// domain.ErrLockConflict; there is no queueing. Expiry is the store's
// responsibility: a lock past its TTL must read back as absent even if the
// row has not been cleaned up yet.
type LockRepository interface {
	// Acquire attempts to take the lock for the given scope
	// (nil section = whole document).
	Acquire(ctx context.Context, lock *models.DocumentLock, ttl time.Duration) error

	// Release removes the holder's lock for the given scope. Fails with
	// domain.ErrLockedByOther when userID is not the holder, and with
	// domain.ErrNotFound when no live lock exists.
	Release(ctx context.Context, documentID, userID string, section *string) error

	// Get returns the current non-expired locks on a document, whole-document
	// lock first. Empty slice means unlocked.
	Get(ctx context.Context, documentID string) ([]models.DocumentLock, error)
}
