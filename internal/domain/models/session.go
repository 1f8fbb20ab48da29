package models

import "time"

// ConflictPolicy selects how concurrently submitted, potentially overlapping
// edits are reconciled when content is reconstructed.
type ConflictPolicy string

const (
	// PolicyManual surfaces overlapping concurrent edits to the caller
	// instead of merging them.
	PolicyManual ConflictPolicy = "manual"

	// PolicyAutoMerge orders edits by timestamp and folds them with
	// positional rebasing. Best effort.
	PolicyAutoMerge ConflictPolicy = "auto_merge"

	// PolicyLastWriteWins lets the most recent insert/replace over a range
	// supersede earlier edits touching the same range.
	PolicyLastWriteWins ConflictPolicy = "last_write_wins"
)

// Valid reports whether p is a known policy.
func (p ConflictPolicy) Valid() bool {
	switch p {
	case PolicyManual, PolicyAutoMerge, PolicyLastWriteWins:
		return true
	}
	return false
}

// SessionSnapshot is a read-only view of a live collaborative session,
// served to callers who want to inspect state without touching it.
type SessionSnapshot struct {
	DocumentID     string         `json:"document_id"`
	Participants   []UserPresence `json:"participants"`
	CurrentVersion int            `json:"current_version"`
	Content        string         `json:"content"`
	PendingEdits   int            `json:"pending_edits"`
	LastSync       time.Time      `json:"last_sync"`
	Unsynced       bool           `json:"unsynced"`
	ConflictPolicy ConflictPolicy `json:"conflict_resolution"`
}
