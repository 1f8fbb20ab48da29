package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"quill/internal/config"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/services"
)

// session is the live state for one document. All fields behind mu; the
// session mutex is the single point of serialization for the document.
type session struct {
	documentID string

	mu          sync.Mutex
	initialized bool
	log         []models.DocumentEdit
	content     string
	current     int // current version, monotonic
	seq         int // last acceptance sequence handed out
	policy      models.ConflictPolicy
	lastSync    time.Time
	unsynced    bool
	// loadIncomplete marks a session whose initial load ran against an
	// unreachable gateway; Sync re-reads and merges before replaying.
	loadIncomplete bool
	// buffered work for Sync when the gateway was unreachable
	pendingCreates map[string]bool
	pendingDeletes []string
	sinceSnapshot  int

	subsMu  sync.Mutex
	subs    map[int]services.EventHandler
	nextSub int
}

func newSession(documentID string, policy models.ConflictPolicy) *session {
	return &session{
		documentID:     documentID,
		current:        1,
		policy:         policy,
		pendingCreates: make(map[string]bool),
		subs:           make(map[int]services.EventHandler),
	}
}

// ensure returns the session for a document, loading it from the gateway on
// first use. Safe to call repeatedly; the load happens once per process
// unless it ran against an unreachable gateway, in which case Sync retries.
func (e *Engine) ensure(ctx context.Context, documentID string) (*session, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrValidation)
	}

	s := e.getOrCreate(documentID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		e.loadLocked(ctx, s)
	}
	return s, nil
}

// loadLocked rebuilds session state from the gateway. Called with s.mu held.
// An unreachable gateway yields an empty session flagged unsynced; callers
// treat the content as potentially incomplete and retry via Sync.
func (e *Engine) loadLocked(ctx context.Context, s *session) {
	s.initialized = true
	s.lastSync = e.now()

	versions, err := e.versions.ListByDocument(ctx, s.documentID)
	if err != nil {
		e.logger.Warn("session init without version history",
			"document_id", s.documentID,
			"error", err,
		)
		s.unsynced = true
		s.loadIncomplete = true
	}
	s.current = 1
	for _, v := range versions {
		if v.Version > s.current {
			s.current = v.Version
		}
	}

	edits, err := e.edits.ListByDocument(ctx, s.documentID)
	if err != nil {
		e.logger.Warn("session init without edit log",
			"document_id", s.documentID,
			"error", err,
		)
		s.unsynced = true
		s.loadIncomplete = true
		s.log = nil
	} else {
		s.log = edits
	}
	for i := range s.log {
		if s.log[i].Seq > s.seq {
			s.seq = s.log[i].Seq
		}
	}
	s.content = Reconstruct(s.log, s.policy)

	// Warm the lock and comment state so init failures surface now rather
	// than on the first edit. The data itself is re-read on demand.
	if _, err := e.locks.Get(ctx, s.documentID); err != nil {
		e.logger.Warn("session init without lock state",
			"document_id", s.documentID,
			"error", err,
		)
	}
	if _, err := e.comments.ListByDocument(ctx, s.documentID); err != nil {
		e.logger.Warn("session init without comments",
			"document_id", s.documentID,
			"error", err,
		)
	}

	if !s.unsynced {
		e.logger.Info("session initialized",
			"document_id", s.documentID,
			"version", s.current,
			"edits", len(s.log),
		)
	}
}

// InitializeSession loads or reuses the in-memory session for a document.
func (e *Engine) InitializeSession(ctx context.Context, documentID string) (*models.SessionSnapshot, error) {
	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return e.snapshotOf(ctx, s), nil
}

// Snapshot returns a read-only view of the live session.
func (e *Engine) Snapshot(ctx context.Context, documentID string) (*models.SessionSnapshot, error) {
	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return e.snapshotOf(ctx, s), nil
}

func (e *Engine) snapshotOf(ctx context.Context, s *session) *models.SessionSnapshot {
	participants, err := e.activeUsers(ctx, s.documentID)
	if err != nil {
		participants = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.SessionSnapshot{
		DocumentID:     s.documentID,
		Participants:   participants,
		CurrentVersion: s.current,
		Content:        s.content,
		PendingEdits:   len(s.pendingCreates) + len(s.pendingDeletes),
		LastSync:       s.lastSync,
		Unsynced:       s.unsynced,
		ConflictPolicy: s.policy,
	}
}

// CloseSession passivates a session once the last participant has left and
// all buffered edits are flushed.
func (e *Engine) CloseSession(ctx context.Context, documentID string) error {
	s, ok := e.lookup(documentID)
	if !ok {
		return fmt.Errorf("session for document %s: %w", documentID, domain.ErrNotFound)
	}

	active, err := e.activeUsers(ctx, documentID)
	if err != nil && !errors.Is(err, domain.ErrGatewayUnavailable) {
		return err
	}
	if len(active) > 0 {
		return fmt.Errorf("%w: %d participants still active", domain.ErrValidation, len(active))
	}

	s.mu.Lock()
	pending := len(s.pendingCreates) + len(s.pendingDeletes)
	s.mu.Unlock()
	if pending > 0 {
		return fmt.Errorf("%w: %d edits not yet flushed, sync first", domain.ErrValidation, pending)
	}

	e.drop(documentID)
	e.logger.Info("session closed", "document_id", documentID)
	return nil
}

// Sync retries persisting edits and removals buffered while the gateway was
// unreachable.
func (e *Engine) Sync(ctx context.Context, documentID string) error {
	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Recover anything the failed initial load missed before replaying
	// local buffers. Edits made since cold start stay; the merge is by ID.
	if s.loadIncomplete {
		if err := e.reloadLocked(ctx, s); err != nil {
			return err
		}
	}

	for id := range s.pendingCreates {
		edit := s.findEditLocked(id)
		if edit == nil {
			// Undone before it was ever persisted
			delete(s.pendingCreates, id)
			continue
		}
		if err := e.edits.Create(ctx, edit); err != nil {
			return fmt.Errorf("sync edit %s: %w", id, err)
		}
		delete(s.pendingCreates, id)
	}

	for len(s.pendingDeletes) > 0 {
		id := s.pendingDeletes[0]
		if err := e.edits.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("sync removal of edit %s: %w", id, err)
		}
		s.pendingDeletes = s.pendingDeletes[1:]
	}

	s.unsynced = false
	s.lastSync = e.now()
	e.logger.Info("session synced", "document_id", documentID, "version", s.current)
	return nil
}

// reloadLocked re-reads versions and edits after a failed initial load and
// merges them under the in-memory state. Caller holds s.mu.
func (e *Engine) reloadLocked(ctx context.Context, s *session) error {
	versions, err := e.versions.ListByDocument(ctx, s.documentID)
	if err != nil {
		return fmt.Errorf("sync version history: %w", err)
	}
	for _, v := range versions {
		if v.Version > s.current {
			s.current = v.Version
		}
	}

	remote, err := e.edits.ListByDocument(ctx, s.documentID)
	if err != nil {
		return fmt.Errorf("sync edit log: %w", err)
	}
	known := make(map[string]bool, len(s.log))
	for i := range s.log {
		known[s.log[i].ID] = true
	}
	// An edit undone locally but still present remotely must not resurface
	for _, id := range s.pendingDeletes {
		known[id] = true
	}
	for _, edit := range remote {
		if !known[edit.ID] {
			s.log = append(s.log, edit)
		}
	}
	for i := range s.log {
		if s.log[i].Seq > s.seq {
			s.seq = s.log[i].Seq
		}
	}

	s.content = Reconstruct(s.log, s.policy)
	s.loadIncomplete = false
	e.logger.Info("session state recovered",
		"document_id", s.documentID,
		"version", s.current,
		"edits", len(s.log),
	)
	return nil
}

// findEditLocked returns the logged edit with the given ID. Caller holds s.mu.
func (s *session) findEditLocked(editID string) *models.DocumentEdit {
	for i := range s.log {
		if s.log[i].ID == editID {
			return &s.log[i]
		}
	}
	return nil
}

// Join registers a participant, replacing any stale presence entry for the
// same user, and emits EventUserJoined.
func (e *Engine) Join(ctx context.Context, documentID string, req *services.JoinRequest) (*models.UserPresence, error) {
	if err := validateJoin(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}

	presence := &models.UserPresence{
		UserID:     req.UserID,
		UserName:   req.UserName,
		DocumentID: documentID,
		LastActive: e.now(),
	}
	if err := e.presence.Upsert(ctx, presence, e.opts.PresenceWindow); err != nil {
		return nil, err
	}

	e.logger.Info("user joined",
		"document_id", documentID,
		"user_id", req.UserID,
	)
	s.emit(services.Event{
		Type:       services.EventUserJoined,
		DocumentID: documentID,
		At:         e.now(),
		Payload:    presence,
	})
	return presence, nil
}

// Leave removes a participant and emits EventUserLeft. Any lock the user
// holds stays in place until released explicitly or expired by TTL.
func (e *Engine) Leave(ctx context.Context, documentID, userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return err
	}

	presence, err := e.presence.Get(ctx, documentID, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err := e.presence.Remove(ctx, documentID, userID); err != nil {
		return err
	}

	if presence == nil {
		presence = &models.UserPresence{UserID: userID, DocumentID: documentID}
	}
	e.logger.Info("user left",
		"document_id", documentID,
		"user_id", userID,
	)
	s.emit(services.Event{
		Type:       services.EventUserLeft,
		DocumentID: documentID,
		At:         e.now(),
		Payload:    presence,
	})
	return nil
}

func validateJoin(req *services.JoinRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.UserName,
			validation.Required,
			validation.Length(1, config.MaxUserNameLength),
		),
	)
}
