package services

import "time"

// EventType identifies a session state change of interest to observers.
type EventType string

const (
	EventEditReceived EventType = "edit_received"
	EventUserJoined   EventType = "user_joined"
	EventUserLeft     EventType = "user_left"
	EventCommentAdded EventType = "comment_added"
	EventLockAcquired EventType = "lock_acquired"
	EventLockReleased EventType = "lock_released"
)

// Event is delivered to session observers. Payload holds the subject of the
// event: *models.DocumentEdit, *models.UserPresence, *models.DocumentComment,
// or *models.DocumentLock depending on Type.
type Event struct {
	Type       EventType   `json:"type"`
	DocumentID string      `json:"document_id"`
	At         time.Time   `json:"at"`
	Payload    interface{} `json:"payload,omitempty"`
}

// EventHandler receives session events. Handlers run synchronously on the
// emitting goroutine and must not block; relaying to other clients is the
// observer's concern.
type EventHandler func(Event)
