package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"quill/internal/domain"
	"quill/internal/domain/models"
)

// mockEditRepo is an in-memory edit log with switchable failures.
type mockEditRepo struct {
	mu    sync.Mutex
	edits []models.DocumentEdit

	failCreate bool
	failList   bool
	failDelete bool

	createCalls int
	deleteCalls int
}

func (m *mockEditRepo) Create(_ context.Context, edit *models.DocumentEdit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreate {
		return fmt.Errorf("%w: create edit: connection refused", domain.ErrGatewayUnavailable)
	}
	m.edits = append(m.edits, *edit)
	return nil
}

func (m *mockEditRepo) ListByDocument(_ context.Context, documentID string) ([]models.DocumentEdit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, fmt.Errorf("%w: list edits: connection refused", domain.ErrGatewayUnavailable)
	}
	var out []models.DocumentEdit
	for _, e := range m.edits {
		if e.DocumentID == documentID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockEditRepo) Delete(_ context.Context, editID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.failDelete {
		return fmt.Errorf("%w: delete edit: connection refused", domain.ErrGatewayUnavailable)
	}
	for i := range m.edits {
		if m.edits[i].ID == editID {
			m.edits = append(m.edits[:i], m.edits[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("edit %s: %w", editID, domain.ErrNotFound)
}

func (m *mockEditRepo) stored() []models.DocumentEdit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DocumentEdit, len(m.edits))
	copy(out, m.edits)
	return out
}

// mockVersionRepo enforces the (document, version) uniqueness the gateway
// guarantees.
type mockVersionRepo struct {
	mu       sync.Mutex
	versions []models.DocumentVersion

	failCreate bool
	failList   bool
}

func (m *mockVersionRepo) Create(_ context.Context, version *models.DocumentVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return fmt.Errorf("%w: create version: connection refused", domain.ErrGatewayUnavailable)
	}
	for _, v := range m.versions {
		if v.DocumentID == version.DocumentID && v.Version == version.Version {
			return fmt.Errorf("%w: version %d already exists", domain.ErrValidation, version.Version)
		}
	}
	m.versions = append(m.versions, *version)
	return nil
}

func (m *mockVersionRepo) GetByID(_ context.Context, versionID string) (*models.DocumentVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.versions {
		if m.versions[i].ID == versionID {
			v := m.versions[i]
			return &v, nil
		}
	}
	return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
}

func (m *mockVersionRepo) ListByDocument(_ context.Context, documentID string) ([]models.DocumentVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, fmt.Errorf("%w: list versions: connection refused", domain.ErrGatewayUnavailable)
	}
	var out []models.DocumentVersion
	for _, v := range m.versions {
		if v.DocumentID == documentID {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// mockLockRepo mirrors the store's exclusion rules: a whole-document lock
// excludes everything, section locks exclude the whole lock and each other
// per section. Expired entries read as absent.
type mockLockRepo struct {
	mu    sync.Mutex
	locks map[string]models.DocumentLock // key: doc or doc+"/"+section
	now   func() time.Time
}

func newMockLockRepo(now func() time.Time) *mockLockRepo {
	return &mockLockRepo{
		locks: make(map[string]models.DocumentLock),
		now:   now,
	}
}

func lockKey(documentID string, section *string) string {
	if section == nil {
		return documentID
	}
	return documentID + "/" + *section
}

func (m *mockLockRepo) live(l models.DocumentLock) bool {
	return !l.IsExpired(m.now())
}

func (m *mockLockRepo) Acquire(_ context.Context, lock *models.DocumentLock, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, existing := range m.locks {
		if !m.live(existing) {
			delete(m.locks, key)
			continue
		}
		if existing.DocumentID != lock.DocumentID {
			continue
		}
		sameScope := lockKey(existing.DocumentID, existing.Section) == lockKey(lock.DocumentID, lock.Section)
		crossScope := existing.Section == nil || lock.Section == nil
		if sameScope || crossScope {
			return fmt.Errorf("%w: held by %s", domain.ErrLockConflict, existing.LockedBy)
		}
	}
	m.locks[lockKey(lock.DocumentID, lock.Section)] = *lock
	return nil
}

func (m *mockLockRepo) Release(_ context.Context, documentID, userID string, section *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockKey(documentID, section)
	existing, ok := m.locks[key]
	if !ok || !m.live(existing) {
		delete(m.locks, key)
		return fmt.Errorf("no live lock on document %s: %w", documentID, domain.ErrNotFound)
	}
	if existing.LockedBy != userID {
		return &domain.LockedError{
			DocumentID: documentID,
			HeldBy:     existing.LockedBy,
			HeldByName: existing.LockedByName,
			Section:    existing.Section,
		}
	}
	delete(m.locks, key)
	return nil
}

func (m *mockLockRepo) Get(_ context.Context, documentID string) ([]models.DocumentLock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentLock
	for _, l := range m.locks {
		if l.DocumentID == documentID && m.live(l) {
			out = append(out, l)
		}
	}
	return out, nil
}

// mockCommentRepo is an in-memory comment store.
type mockCommentRepo struct {
	mu       sync.Mutex
	comments []models.DocumentComment
}

func (m *mockCommentRepo) Create(_ context.Context, comment *models.DocumentComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *mockCommentRepo) GetByID(_ context.Context, commentID string) (*models.DocumentComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == commentID {
			c := m.comments[i]
			return &c, nil
		}
	}
	return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
}

func (m *mockCommentRepo) ListByDocument(_ context.Context, documentID string) ([]models.DocumentComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DocumentComment
	for _, c := range m.comments {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCommentRepo) Resolve(_ context.Context, commentID, resolvedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == commentID {
			m.comments[i].Resolved = true
			if m.comments[i].ResolvedBy == nil {
				by := resolvedBy
				m.comments[i].ResolvedBy = &by
			}
			return nil
		}
	}
	return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
}

// mockPresenceRepo is an in-memory presence store. The freshness window is
// ignored here; the engine re-filters by LastActive on every read anyway.
type mockPresenceRepo struct {
	mu      sync.Mutex
	records map[string]models.UserPresence // key: doc+"/"+user
}

func newMockPresenceRepo() *mockPresenceRepo {
	return &mockPresenceRepo{records: make(map[string]models.UserPresence)}
}

func (m *mockPresenceRepo) Upsert(_ context.Context, presence *models.UserPresence, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[presence.DocumentID+"/"+presence.UserID] = *presence
	return nil
}

func (m *mockPresenceRepo) Get(_ context.Context, documentID, userID string) (*models.UserPresence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.records[documentID+"/"+userID]
	if !ok {
		return nil, fmt.Errorf("presence for %s: %w", userID, domain.ErrNotFound)
	}
	return &p, nil
}

func (m *mockPresenceRepo) ListByDocument(_ context.Context, documentID string) ([]models.UserPresence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserPresence
	for _, p := range m.records {
		if p.DocumentID == documentID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *mockPresenceRepo) Remove(_ context.Context, documentID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, documentID+"/"+userID)
	return nil
}

// testEnv bundles an engine with its mock repositories and a controllable
// clock.
type testEnv struct {
	engine   *Engine
	edits    *mockEditRepo
	versions *mockVersionRepo
	locks    *mockLockRepo
	comments *mockCommentRepo
	presence *mockPresenceRepo
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEnv(opts Options) *testEnv {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	env := &testEnv{
		edits:    &mockEditRepo{},
		versions: &mockVersionRepo{},
		locks:    newMockLockRepo(clock.Now),
		comments: &mockCommentRepo{},
		presence: newMockPresenceRepo(),
		clock:    clock,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.engine = New(env.edits, env.versions, env.locks, env.comments, env.presence, opts, logger)
	env.engine.now = clock.Now
	return env
}
