// Package engine implements the collaborative editing core: one in-memory
// session per actively edited document, serialized per document, rebuildable
// from the persistence gateway after a crash.
package engine

import (
	"log/slog"
	"sync"
	"time"

	"quill/internal/config"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
	"quill/internal/domain/services"
)

// Options carries the engine tuning knobs, usually resolved from an engine
// profile plus env overrides.
type Options struct {
	LockTTL        time.Duration
	PresenceWindow time.Duration
	// AutoVersionThreshold is how many accepted edits trigger an automatic
	// minor snapshot. Zero disables auto-versioning.
	AutoVersionThreshold int
	DefaultPolicy        models.ConflictPolicy
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.LockTTL <= 0 {
		o.LockTTL = config.DefaultLockTTL
	}
	if o.PresenceWindow <= 0 {
		o.PresenceWindow = config.DefaultPresenceWindow
	}
	if !o.DefaultPolicy.Valid() {
		o.DefaultPolicy = models.PolicyManual
	}
	return o
}

// Engine implements services.Engine. Sessions are kept in a registry keyed
// by document ID; each session owns a mutex that serializes every mutation
// of that document, while separate documents proceed in parallel.
type Engine struct {
	edits    repositories.EditRepository
	versions repositories.VersionRepository
	locks    repositories.LockRepository
	comments repositories.CommentRepository
	presence repositories.PresenceRepository

	opts   Options
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// New creates an engine wired to the given gateway repositories.
func New(
	editRepo repositories.EditRepository,
	versionRepo repositories.VersionRepository,
	lockRepo repositories.LockRepository,
	commentRepo repositories.CommentRepository,
	presenceRepo repositories.PresenceRepository,
	opts Options,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		edits:    editRepo,
		versions: versionRepo,
		locks:    lockRepo,
		comments: commentRepo,
		presence: presenceRepo,
		opts:     opts.withDefaults(),
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

var _ services.Engine = (*Engine)(nil)

// getOrCreate returns the session shell for a document, creating it if
// needed. The session is loaded from the gateway on first use, not here.
func (e *Engine) getOrCreate(documentID string) *session {
	e.mu.RLock()
	s, ok := e.sessions[documentID]
	e.mu.RUnlock()
	if ok {
		return s
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.sessions[documentID]; ok {
		return s
	}
	s = newSession(documentID, e.opts.DefaultPolicy)
	e.sessions[documentID] = s
	return s
}

// lookup returns the live session, if any.
func (e *Engine) lookup(documentID string) (*session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[documentID]
	return s, ok
}

// drop removes a session from the registry.
func (e *Engine) drop(documentID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, documentID)
}
