package models

import (
	"time"
	"unicode/utf8"
)

// EditType is the kind of atomic change an edit proposes.
type EditType string

const (
	EditInsert  EditType = "insert"
	EditDelete  EditType = "delete"
	EditReplace EditType = "replace"
)

// Valid reports whether t is one of the known edit types.
func (t EditType) Valid() bool {
	switch t {
	case EditInsert, EditDelete, EditReplace:
		return true
	}
	return false
}

// DocumentEdit is one atomic change proposal against a document.
// Once accepted into the log an edit is immutable; it can only be removed
// again by an explicit undo, never mutated in place.
type DocumentEdit struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	Type       EditType  `json:"type"`
	Position   int       `json:"position"`
	Length     int       `json:"length,omitempty"`  // delete/replace only
	Content    string    `json:"content,omitempty"` // insert/replace only
	Timestamp  time.Time `json:"timestamp"`
	// Version is the document version this edit was proposed against.
	Version int `json:"version"`
	// Seq is the per-document acceptance counter. Timestamps have clock
	// granularity and can collide; Seq is what keeps two edits accepted in
	// the same tick folding in acceptance order.
	Seq int `json:"seq"`
}

// End returns the exclusive end offset of the range this edit touches in the
// content it was proposed against. Offsets count characters, not bytes.
func (e *DocumentEdit) End() int {
	switch e.Type {
	case EditInsert:
		return e.Position + utf8.RuneCountInString(e.Content)
	default:
		return e.Position + e.Length
	}
}

// Overlaps reports whether two edits touch intersecting offset ranges.
// Pure range intersection; callers decide what overlap means for their
// resolution strategy.
func (e *DocumentEdit) Overlaps(other *DocumentEdit) bool {
	return e.Position < other.End() && other.Position < e.End()
}
