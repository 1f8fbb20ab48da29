package models

import "time"

// DocumentVersion is an immutable named snapshot of full document content.
// Versions are only ever appended: restoring an old version creates a new
// one copying its content.
type DocumentVersion struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	// Version numbers are strictly increasing per document with no
	// duplicates; the gateway enforces uniqueness as the cross-process
	// backstop.
	Version        int       `json:"version"`
	Content        string    `json:"content"`
	AuthorID       string    `json:"author_id"`
	AuthorName     string    `json:"author_name"`
	ChangesSummary string    `json:"changes_summary"`
	CreatedAt      time.Time `json:"created_at"`
	IsMajor        bool      `json:"is_major"`
}
