package models

import "time"

// DocumentComment is a threaded annotation anchored to a content offset.
// Comments are never deleted; resolution only ever flips forward. The
// asymmetry with edits (which can be removed by undo) is deliberate: the
// discussion history is the audit trail.
type DocumentComment struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	AuthorID      string    `json:"author_id"`
	AuthorName    string    `json:"author_name"`
	Content       string    `json:"content"`
	Position      int       `json:"position"`
	SelectionText string    `json:"selection_text,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Resolved      bool      `json:"resolved"`
	ResolvedBy    *string   `json:"resolved_by,omitempty"`
	// ThreadID is nil for root comments; replies carry the root comment's ID.
	ThreadID *string `json:"thread_id,omitempty"`
}

// IsRoot reports whether the comment starts a thread.
func (c *DocumentComment) IsRoot() bool {
	return c.ThreadID == nil
}
