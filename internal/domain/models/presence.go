package models

import "time"

// UserPresence is ephemeral per-user, per-document activity state.
// "Active" is a read-time judgement against a freshness window, not a
// stored flag.
type UserPresence struct {
	UserID         string    `json:"user_id"`
	UserName       string    `json:"user_name"`
	DocumentID     string    `json:"document_id"`
	CursorPosition int       `json:"cursor_position"`
	SelectionStart int       `json:"selection_start"`
	SelectionEnd   int       `json:"selection_end"`
	LastActive     time.Time `json:"last_active"`
	IsEditing      bool      `json:"is_editing"`
	CurrentSection *string   `json:"current_section,omitempty"`
}

// IsActive reports whether the record is fresh at the given instant.
func (p *UserPresence) IsActive(now time.Time, window time.Duration) bool {
	return now.Sub(p.LastActive) < window
}

// PresenceUpdate carries the partial fields merged into a presence record on
// a heartbeat. Nil fields are left unchanged.
type PresenceUpdate struct {
	CursorPosition *int    `json:"cursor_position,omitempty"`
	SelectionStart *int    `json:"selection_start,omitempty"`
	SelectionEnd   *int    `json:"selection_end,omitempty"`
	IsEditing      *bool   `json:"is_editing,omitempty"`
	CurrentSection *string `json:"current_section,omitempty"`
}

// Apply merges the partial update into p and refreshes LastActive.
func (p *UserPresence) Apply(update *PresenceUpdate, now time.Time) {
	if update.CursorPosition != nil {
		p.CursorPosition = *update.CursorPosition
	}
	if update.SelectionStart != nil {
		p.SelectionStart = *update.SelectionStart
	}
	if update.SelectionEnd != nil {
		p.SelectionEnd = *update.SelectionEnd
	}
	if update.IsEditing != nil {
		p.IsEditing = *update.IsEditing
	}
	if update.CurrentSection != nil {
		p.CurrentSection = update.CurrentSection
	}
	p.LastActive = now
}
