package config

import "time"

const (
	// MaxEditContentLength is the maximum length of a single edit's inserted
	// text. Edits are fine-grained changes; anything larger should arrive as
	// a sequence of edits or a full version snapshot.
	MaxEditContentLength = 65536

	// MaxCommentLength is the maximum length of comment bodies.
	// Limited to 4000 to fit comfortably in a TEXT column while keeping
	// threads readable.
	MaxCommentLength = 4000

	// MaxSelectionTextLength is the maximum stored selection excerpt for an
	// anchored comment. The excerpt is display context, not content, so it
	// is truncated on the way in rather than rejected.
	MaxSelectionTextLength = 512

	// MaxUserNameLength is the maximum length for display names carried on
	// edits, locks, and presence records.
	MaxUserNameLength = 255

	// MaxSectionNameLength is the maximum length for section identifiers on
	// section-scoped locks.
	MaxSectionNameLength = 255

	// MaxSummaryLength is the maximum length for version change summaries.
	MaxSummaryLength = 1000
)

const (
	// DefaultLockTTL is how long an exclusive lock lives without renewal.
	DefaultLockTTL = 5 * time.Minute

	// DefaultPresenceWindow is the freshness window for presence records.
	// A user whose last heartbeat is older than this is not "active".
	DefaultPresenceWindow = 5 * time.Minute
)
