package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
)

func newTestLockStore(t *testing.T) (repositories.LockRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLockStore(client), mr
}

func wholeLock(documentID, userID string) *models.DocumentLock {
	now := time.Now()
	return &models.DocumentLock{
		DocumentID:   documentID,
		LockedBy:     userID,
		LockedByName: "User " + userID,
		LockedAt:     now,
		ExpiresAt:    now.Add(5 * time.Minute),
	}
}

func sectionLock(documentID, userID, section string) *models.DocumentLock {
	l := wholeLock(documentID, userID)
	l.Section = &section
	return l
}

func TestLockStoreAcquireIsExclusive(t *testing.T) {
	store, _ := newTestLockStore(t)
	ctx := context.Background()

	if err := store.Acquire(ctx, wholeLock("doc-1", "u1"), 5*time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	err := store.Acquire(ctx, wholeLock("doc-1", "u2"), 5*time.Minute)
	if !errors.Is(err, domain.ErrLockConflict) {
		t.Errorf("second acquire error = %v, want ErrLockConflict", err)
	}

	// Other documents are independent
	if err := store.Acquire(ctx, wholeLock("doc-2", "u2"), 5*time.Minute); err != nil {
		t.Errorf("acquire on other document: %v", err)
	}
}

func TestLockStoreWholeAndSectionExclusion(t *testing.T) {
	store, _ := newTestLockStore(t)
	ctx := context.Background()

	if err := store.Acquire(ctx, sectionLock("doc-1", "u1", "intro"), 5*time.Minute); err != nil {
		t.Fatalf("Acquire(intro): %v", err)
	}

	// Whole-document lock is excluded by the live section lock
	if err := store.Acquire(ctx, wholeLock("doc-1", "u2"), 5*time.Minute); !errors.Is(err, domain.ErrLockConflict) {
		t.Errorf("whole acquire over section lock error = %v, want ErrLockConflict", err)
	}

	// Same section conflicts, another section coexists
	if err := store.Acquire(ctx, sectionLock("doc-1", "u2", "intro"), 5*time.Minute); !errors.Is(err, domain.ErrLockConflict) {
		t.Errorf("same-section acquire error = %v, want ErrLockConflict", err)
	}
	if err := store.Acquire(ctx, sectionLock("doc-1", "u2", "body"), 5*time.Minute); err != nil {
		t.Errorf("different-section acquire: %v", err)
	}

	// With section locks live, the whole lock stays excluded; releasing
	// them clears the way
	if err := store.Release(ctx, "doc-1", "u1", strPtr("intro")); err != nil {
		t.Fatalf("Release(intro): %v", err)
	}
	if err := store.Release(ctx, "doc-1", "u2", strPtr("body")); err != nil {
		t.Fatalf("Release(body): %v", err)
	}
	if err := store.Acquire(ctx, wholeLock("doc-1", "u2"), 5*time.Minute); err != nil {
		t.Errorf("whole acquire after releases: %v", err)
	}
}

func TestLockStoreTTLExpiry(t *testing.T) {
	store, mr := newTestLockStore(t)
	ctx := context.Background()

	if err := store.Acquire(ctx, wholeLock("doc-1", "u1"), time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	locks, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(locks) != 0 {
		t.Errorf("live locks = %d, want 0 after TTL", len(locks))
	}

	// The lapsed scope is acquirable again
	if err := store.Acquire(ctx, wholeLock("doc-1", "u2"), time.Minute); err != nil {
		t.Errorf("acquire after TTL: %v", err)
	}
}

func TestLockStoreReleaseVerifiesHolder(t *testing.T) {
	store, _ := newTestLockStore(t)
	ctx := context.Background()

	if err := store.Acquire(ctx, wholeLock("doc-1", "u1"), 5*time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	err := store.Release(ctx, "doc-1", "u2", nil)
	if !errors.Is(err, domain.ErrLockedByOther) {
		t.Errorf("release by non-holder error = %v, want ErrLockedByOther", err)
	}
	var locked *domain.LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("error %v should carry holder details", err)
	}
	if locked.HeldBy != "u1" {
		t.Errorf("held by %q, want u1", locked.HeldBy)
	}

	if err := store.Release(ctx, "doc-1", "u1", nil); err != nil {
		t.Fatalf("release by holder: %v", err)
	}
	if err := store.Release(ctx, "doc-1", "u1", nil); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("release with no live lock error = %v, want ErrNotFound", err)
	}
}

func TestLockStoreGetReturnsLiveLocks(t *testing.T) {
	store, _ := newTestLockStore(t)
	ctx := context.Background()

	if err := store.Acquire(ctx, sectionLock("doc-1", "u1", "intro"), 5*time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := store.Acquire(ctx, sectionLock("doc-1", "u2", "body"), 5*time.Minute); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	locks, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(locks) != 2 {
		t.Fatalf("live locks = %d, want 2", len(locks))
	}

	holders := map[string]string{}
	for _, l := range locks {
		if l.Section == nil {
			t.Errorf("unexpected whole-document lock: %+v", l)
			continue
		}
		holders[*l.Section] = l.LockedBy
	}
	if holders["intro"] != "u1" || holders["body"] != "u2" {
		t.Errorf("holders = %v, want intro:u1 body:u2", holders)
	}

	empty, err := store.Get(ctx, "doc-unlocked")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("locks on untouched document = %d, want 0", len(empty))
	}
}

// Document IDs are free-form; a ":" in one must not make its whole lock
// read as another document's section lock.
func TestLockStoreIsolatesColonDocumentIDs(t *testing.T) {
	store, _ := newTestLockStore(t)
	ctx := context.Background()

	// Unescaped, "a:s:b" whole and ("a", "b") section would share a key
	if err := store.Acquire(ctx, wholeLock("a:s:b", "u1"), 5*time.Minute); err != nil {
		t.Fatalf("acquire whole lock: %v", err)
	}
	if err := store.Acquire(ctx, sectionLock("a", "u2", "b"), 5*time.Minute); err != nil {
		t.Fatalf("acquire section lock on other document: %v", err)
	}

	locks, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(locks) != 1 || locks[0].Section == nil || *locks[0].Section != "b" {
		t.Fatalf("locks on document a = %+v, want only section b", locks)
	}

	locks, err = store.Get(ctx, "a:s:b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(locks) != 1 || locks[0].Section != nil || locks[0].LockedBy != "u1" {
		t.Fatalf("locks on document a:s:b = %+v, want only u1's whole lock", locks)
	}

	// Releasing one leaves the other in place
	if err := store.Release(ctx, "a:s:b", "u1", nil); err != nil {
		t.Fatalf("Release: %v", err)
	}
	locks, err = store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(locks) != 1 {
		t.Errorf("locks on document a after unrelated release = %d, want 1", len(locks))
	}
}

func strPtr(s string) *string { return &s }
