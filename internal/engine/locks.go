package engine

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"quill/internal/config"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/services"
)

// AcquireLock takes an exclusive or section-scoped lock. Test-and-set:
// immediate success or immediate domain.ErrLockConflict, never queued.
// Acquisitions for one document are serialized by the session mutex; the
// store's SetNX is the backstop for anything outside this process.
func (e *Engine) AcquireLock(ctx context.Context, documentID string, req *services.AcquireLockRequest) (*models.DocumentLock, error) {
	if err := validateAcquire(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	lock := &models.DocumentLock{
		DocumentID:   documentID,
		LockedBy:     req.UserID,
		LockedByName: req.UserName,
		LockedAt:     now,
		ExpiresAt:    now.Add(e.opts.LockTTL),
		Section:      req.Section,
	}

	s.mu.Lock()
	err = e.locks.Acquire(ctx, lock, e.opts.LockTTL)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.logger.Info("lock acquired",
		"document_id", documentID,
		"user_id", req.UserID,
		"section", sectionLabel(req.Section),
		"expires_at", lock.ExpiresAt,
	)
	s.emit(services.Event{
		Type:       services.EventLockAcquired,
		DocumentID: documentID,
		At:         now,
		Payload:    lock,
	})
	return lock, nil
}

// ReleaseLock releases the caller's lock for the given scope.
func (e *Engine) ReleaseLock(ctx context.Context, documentID, userID string, section *string) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = e.locks.Release(ctx, documentID, userID, section)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	e.logger.Info("lock released",
		"document_id", documentID,
		"user_id", userID,
		"section", sectionLabel(section),
	)
	s.emit(services.Event{
		Type:       services.EventLockReleased,
		DocumentID: documentID,
		At:         e.now(),
		Payload: &models.DocumentLock{
			DocumentID: documentID,
			LockedBy:   userID,
			Section:    section,
		},
	})
	return nil
}

// CheckLock returns the current non-expired locks on a document. An expired
// row that the store has not yet cleaned reads as unlocked.
func (e *Engine) CheckLock(ctx context.Context, documentID string) ([]models.DocumentLock, error) {
	if _, err := e.ensure(ctx, documentID); err != nil {
		return nil, err
	}
	return e.checkLocks(ctx, documentID)
}

// checkLocks reads and filters locks without touching session state.
func (e *Engine) checkLocks(ctx context.Context, documentID string) ([]models.DocumentLock, error) {
	locks, err := e.locks.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	live := locks[:0]
	for i := range locks {
		if !locks[i].IsExpired(now) {
			live = append(live, locks[i])
		}
	}
	return live, nil
}

func sectionLabel(section *string) string {
	if section == nil {
		return "document"
	}
	return *section
}

func validateAcquire(req *services.AcquireLockRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.UserName,
			validation.Required,
			validation.Length(1, config.MaxUserNameLength),
		),
		validation.Field(&req.Section,
			validation.Length(1, config.MaxSectionNameLength),
		),
	)
}
