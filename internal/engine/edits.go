package engine

import (
	"context"
	"fmt"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"quill/internal/config"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/services"
)

// ApplyEdit validates, orders, persists, and applies one atomic edit.
//
// Failure modes, none of which disturb session state:
//   - domain.ErrValidation: malformed request
//   - domain.ErrLockedByOther: another user's lock covers the edit
//   - domain.ErrStaleOffset: position/length no longer fit the content
//   - domain.ErrConflictDetected (manual policy): overlapping concurrent edit
//
// A gateway failure does NOT fail the operation: the edit is applied in
// memory, the session is flagged unsynced, and Sync retries the persist.
func (e *Engine) ApplyEdit(ctx context.Context, documentID string, req *services.ApplyEditRequest) (*models.DocumentEdit, error) {
	if err := validateEdit(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Lock gate. Read outside the session mutex so a slow gateway does not
	// serialize reads behind edits.
	locks, err := e.checkLocks(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for i := range locks {
		if locks[i].Covers(req.UserID, req.Section) {
			return nil, &domain.LockedError{
				DocumentID: documentID,
				HeldBy:     locks[i].LockedBy,
				HeldByName: locks[i].LockedByName,
				Section:    locks[i].Section,
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := req.BaseVersion
	if base == 0 {
		base = s.current
	}

	s.seq++
	edit := &models.DocumentEdit{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		UserID:     req.UserID,
		UserName:   req.UserName,
		Type:       req.Type,
		Position:   req.Position,
		Length:     req.Length,
		Content:    req.Content,
		Timestamp:  e.now(),
		Version:    s.current,
		Seq:        s.seq,
	}

	// Manual policy: overlapping edits proposed against different base
	// versions are the caller's problem, with both edits attached.
	if s.policy == models.PolicyManual {
		for i := range s.log {
			existing := &s.log[i]
			if existing.Version > base && existing.Overlaps(edit) {
				conflicting := *existing
				return nil, &domain.EditConflictError{
					DocumentID: documentID,
					Proposed:   edit,
					Existing:   &conflicting,
				}
			}
		}
	}

	// Offset bound: stale edits are rejected, never truncated. Offsets
	// count characters, matching what callers see in editors.
	chars := utf8.RuneCountInString(s.content)
	if edit.Position > chars {
		return nil, fmt.Errorf("position %d beyond content length %d: %w",
			edit.Position, chars, domain.ErrStaleOffset)
	}
	if edit.Type != models.EditInsert && edit.Position+edit.Length > chars {
		return nil, fmt.Errorf("range [%d,%d) beyond content length %d: %w",
			edit.Position, edit.Position+edit.Length, chars, domain.ErrStaleOffset)
	}

	s.log = append(s.log, *edit)
	if err := e.edits.Create(ctx, edit); err != nil {
		s.unsynced = true
		s.pendingCreates[edit.ID] = true
		e.logger.Warn("edit buffered, gateway unreachable",
			"document_id", documentID,
			"edit_id", edit.ID,
			"error", err,
		)
	}

	s.content = Reconstruct(s.log, s.policy)
	s.sinceSnapshot++

	if e.opts.AutoVersionThreshold > 0 && s.sinceSnapshot >= e.opts.AutoVersionThreshold {
		if _, err := e.createVersionLocked(ctx, s, &services.CreateVersionRequest{
			AuthorID:       edit.UserID,
			AuthorName:     edit.UserName,
			ChangesSummary: fmt.Sprintf("Auto snapshot after %d edits", s.sinceSnapshot),
		}); err != nil {
			e.logger.Warn("auto snapshot failed",
				"document_id", documentID,
				"error", err,
			)
		}
	}

	e.logger.Debug("edit applied",
		"document_id", documentID,
		"edit_id", edit.ID,
		"type", string(edit.Type),
		"position", edit.Position,
	)
	s.emit(services.Event{
		Type:       services.EventEditReceived,
		DocumentID: documentID,
		At:         edit.Timestamp,
		Payload:    edit,
	})
	return edit, nil
}

// UndoEdit removes a previously accepted edit from the log and persists the
// removal. This is log surgery, not a compensating edit: undoing anything
// but the most recent unconfirmed edit can invalidate later offsets, and
// that responsibility sits with the caller.
func (e *Engine) UndoEdit(ctx context.Context, documentID, editID string) error {
	if editID == "" {
		return fmt.Errorf("%w: edit id is required", domain.ErrValidation)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.log {
		if s.log[i].ID == editID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("edit %s: %w", editID, domain.ErrNotFound)
	}

	s.log = append(s.log[:idx], s.log[idx+1:]...)

	if s.pendingCreates[editID] {
		// Never reached the gateway; nothing to delete remotely
		delete(s.pendingCreates, editID)
	} else if err := e.edits.Delete(ctx, editID); err != nil {
		s.unsynced = true
		s.pendingDeletes = append(s.pendingDeletes, editID)
		e.logger.Warn("edit removal buffered, gateway unreachable",
			"document_id", documentID,
			"edit_id", editID,
			"error", err,
		)
	}

	s.content = Reconstruct(s.log, s.policy)
	if s.sinceSnapshot > 0 {
		s.sinceSnapshot--
	}

	e.logger.Info("edit undone",
		"document_id", documentID,
		"edit_id", editID,
	)
	return nil
}

// Content returns the reconstructed document content.
func (e *Engine) Content(ctx context.Context, documentID string) (string, error) {
	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.content, nil
}

func validateEdit(req *services.ApplyEditRequest) error {
	if !req.Type.Valid() {
		return fmt.Errorf("unknown edit type %q", req.Type)
	}
	if req.Type != models.EditDelete && req.Content == "" {
		return fmt.Errorf("%s edits require content", req.Type)
	}
	if req.Type != models.EditInsert && req.Length <= 0 {
		return fmt.Errorf("%s edits require a positive length", req.Type)
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.UserName,
			validation.Required,
			validation.Length(1, config.MaxUserNameLength),
		),
		validation.Field(&req.Position, validation.Min(0)),
		validation.Field(&req.Length, validation.Min(0)),
		validation.Field(&req.Content,
			validation.Length(0, config.MaxEditContentLength),
		),
		validation.Field(&req.BaseVersion, validation.Min(0)),
	)
}
