package services

import (
	"context"

	"quill/internal/domain/models"
)

// Engine is the per-document collaborative editing façade: join/leave,
// edit application, locking, comments, versioning, presence, and the
// observer surface. All operations on the same document are serialized by
// the engine; different documents proceed in parallel.
type Engine interface {
	// InitializeSession loads or reuses the in-memory session for a
	// document. Idempotent per process and correct from cold state.
	InitializeSession(ctx context.Context, documentID string) (*models.SessionSnapshot, error)

	// CloseSession passivates the session once the last participant has
	// left and all edits are flushed.
	CloseSession(ctx context.Context, documentID string) error

	// Snapshot returns a read-only view of the live session.
	Snapshot(ctx context.Context, documentID string) (*models.SessionSnapshot, error)

	// Sync retries persisting any edits buffered while the gateway was
	// unreachable.
	Sync(ctx context.Context, documentID string) error

	// Join registers a participant and emits EventUserJoined.
	Join(ctx context.Context, documentID string, req *JoinRequest) (*models.UserPresence, error)

	// Leave removes a participant and emits EventUserLeft. Locks held by
	// the user are not released implicitly.
	Leave(ctx context.Context, documentID, userID string) error

	// ApplyEdit validates, orders, persists, and applies one edit.
	ApplyEdit(ctx context.Context, documentID string, req *ApplyEditRequest) (*models.DocumentEdit, error)

	// UndoEdit removes a previously accepted edit from the log.
	UndoEdit(ctx context.Context, documentID, editID string) error

	// Content returns the reconstructed document content.
	Content(ctx context.Context, documentID string) (string, error)

	// AcquireLock takes an exclusive or section lock, test-and-set.
	AcquireLock(ctx context.Context, documentID string, req *AcquireLockRequest) (*models.DocumentLock, error)

	// ReleaseLock releases the caller's lock for the given scope.
	ReleaseLock(ctx context.Context, documentID, userID string, section *string) error

	// CheckLock returns the current non-expired locks, empty if unlocked.
	CheckLock(ctx context.Context, documentID string) ([]models.DocumentLock, error)

	// CreateVersion cuts an immutable snapshot at the next version number.
	CreateVersion(ctx context.Context, documentID string, req *CreateVersionRequest) (*models.DocumentVersion, error)

	// LoadVersionHistory lists snapshots in ascending version order.
	LoadVersionHistory(ctx context.Context, documentID string) ([]models.DocumentVersion, error)

	// RestoreVersion appends a new version copying a historical snapshot's
	// content. History stays append-only.
	RestoreVersion(ctx context.Context, documentID, versionID string, req *RestoreVersionRequest) (*models.DocumentVersion, error)

	// UpdatePresence merges partial cursor state and refreshes last_active.
	UpdatePresence(ctx context.Context, documentID, userID string, update *models.PresenceUpdate) (*models.UserPresence, error)

	// GetActiveUsers returns presence records inside the freshness window,
	// recomputed at call time.
	GetActiveUsers(ctx context.Context, documentID string) ([]models.UserPresence, error)

	// AddComment anchors a new root comment.
	AddComment(ctx context.Context, documentID string, req *AddCommentRequest) (*models.DocumentComment, error)

	// ReplyToComment adds a threaded reply to a root comment.
	ReplyToComment(ctx context.Context, documentID, parentID string, req *AddCommentRequest) (*models.DocumentComment, error)

	// ResolveComment marks a comment resolved. Monotonic.
	ResolveComment(ctx context.Context, documentID, commentID, resolvedBy string) error

	// LoadComments lists all comments for a document.
	LoadComments(ctx context.Context, documentID string) ([]models.DocumentComment, error)

	// Subscribe registers an observer for the document's events and returns
	// its unsubscribe function.
	Subscribe(documentID string, fn EventHandler) (unsubscribe func())
}

// JoinRequest registers a participant in a session.
type JoinRequest struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

// ApplyEditRequest proposes one atomic change.
type ApplyEditRequest struct {
	UserID   string          `json:"user_id"`
	UserName string          `json:"user_name"`
	Type     models.EditType `json:"type"`
	Position int             `json:"position"`
	Length   int             `json:"length,omitempty"`
	Content  string          `json:"content,omitempty"`
	// BaseVersion is the version the caller proposed the edit against.
	// Zero means "current".
	BaseVersion int `json:"base_version,omitempty"`
	// Section scopes the edit for lock checking (nil = whole document).
	Section *string `json:"section,omitempty"`
}

// AcquireLockRequest takes a whole-document or section lock.
type AcquireLockRequest struct {
	UserID   string  `json:"user_id"`
	UserName string  `json:"user_name"`
	Section  *string `json:"section,omitempty"`
}

// CreateVersionRequest cuts a named snapshot.
type CreateVersionRequest struct {
	AuthorID       string `json:"author_id"`
	AuthorName     string `json:"author_name"`
	ChangesSummary string `json:"changes_summary"`
	IsMajor        bool   `json:"is_major"`
	// Content overrides the session's reconstructed content when non-nil
	// (explicit "save version" with caller-provided text).
	Content *string `json:"content,omitempty"`
}

// AddCommentRequest anchors a comment (or reply) to a content offset.
type AddCommentRequest struct {
	AuthorID      string `json:"author_id"`
	AuthorName    string `json:"author_name"`
	Content       string `json:"content"`
	Position      int    `json:"position"`
	SelectionText string `json:"selection_text,omitempty"`
}

// RestoreVersionRequest records who performed a restore.
type RestoreVersionRequest struct {
	AuthorID   string `json:"author_id"`
	AuthorName string `json:"author_name"`
}
