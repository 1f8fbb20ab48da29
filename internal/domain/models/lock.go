package models

import "time"

// DocumentLock is an exclusive or section-scoped write grant.
// A lock with Section == nil covers the whole document and excludes any
// other lock on it; section locks exclude the whole-document lock and each
// other per section. Expiry is passive: an expired row still present in the
// store is treated as absent.
type DocumentLock struct {
	DocumentID   string    `json:"document_id"`
	LockedBy     string    `json:"locked_by"`
	LockedByName string    `json:"locked_by_name"`
	LockedAt     time.Time `json:"locked_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Section      *string   `json:"section,omitempty"`
}

// IsExpired reports whether the lock has passed its expiry.
func (l *DocumentLock) IsExpired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

// Covers reports whether this lock excludes a write by userID to the given
// section (nil section = whole-document write).
func (l *DocumentLock) Covers(userID string, section *string) bool {
	if l.LockedBy == userID {
		return false
	}
	// Whole-document lock on either side excludes everything
	if l.Section == nil || section == nil {
		return true
	}
	return *l.Section == *section
}
