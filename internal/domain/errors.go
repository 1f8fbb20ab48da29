package domain

import (
	"errors"
	"fmt"
	"net/http"

	"quill/internal/domain/models"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface keeps the handler layer's error mapping
// extensible without per-error switch cases.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	// ErrNotFound indicates a document, edit, version, lock, or comment
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")

	// ErrStaleOffset indicates an edit whose position/length no longer fits
	// the current document content. Recoverable: re-fetch content and resubmit.
	ErrStaleOffset = errors.New("stale offset")

	// ErrLockedByOther indicates a write rejected because another user holds
	// a covering lock. Not retried automatically.
	ErrLockedByOther = errors.New("locked by another user")

	// ErrLockConflict indicates lock acquisition failed because a conflicting
	// lock exists. Acquisition never queues; the caller decides what to do.
	ErrLockConflict = errors.New("lock conflict")

	// ErrConflictDetected indicates the manual resolution policy found
	// overlapping concurrent edits. Carried by EditConflictError.
	ErrConflictDetected = errors.New("conflict detected")

	// ErrGatewayUnavailable indicates a persistence call failed. In-memory
	// session state remains authoritative but is flagged unsynced.
	ErrGatewayUnavailable = errors.New("persistence gateway unavailable")
)

// LockedError reports a write rejected by another user's lock.
type LockedError struct {
	DocumentID string
	HeldBy     string
	HeldByName string
	Section    *string
}

func (e *LockedError) Error() string {
	if e.Section != nil {
		return fmt.Sprintf("document %s section %q is locked by %s", e.DocumentID, *e.Section, e.HeldByName)
	}
	return fmt.Sprintf("document %s is locked by %s", e.DocumentID, e.HeldByName)
}

// StatusCode implements the HTTPError interface.
func (e *LockedError) StatusCode() int { return http.StatusLocked }

// Is allows errors.Is() to match against ErrLockedByOther.
func (e *LockedError) Is(target error) bool { return target == ErrLockedByOther }

// EditConflictError reports overlapping concurrent edits surfaced by the
// manual resolution policy. Both edits are attached so the caller can drive
// resolution.
type EditConflictError struct {
	DocumentID string
	Proposed   *models.DocumentEdit
	Existing   *models.DocumentEdit
}

func (e *EditConflictError) Error() string {
	return fmt.Sprintf("document %s: edit at %d conflicts with concurrent edit %s",
		e.DocumentID, e.Proposed.Position, e.Existing.ID)
}

// StatusCode implements the HTTPError interface.
func (e *EditConflictError) StatusCode() int { return http.StatusConflict }

// Is allows errors.Is() to match against ErrConflictDetected.
func (e *EditConflictError) Is(target error) bool { return target == ErrConflictDetected }
