package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the engine's tables if they do not exist yet.
// Safe to run on every start; statements are idempotent.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	statements := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				document_id TEXT NOT NULL,
				user_id TEXT NOT NULL,
				user_name TEXT NOT NULL,
				edit_type TEXT NOT NULL,
				position INTEGER NOT NULL,
				length INTEGER NOT NULL DEFAULT 0,
				content TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				version INTEGER NOT NULL,
				seq INTEGER NOT NULL DEFAULT 0
			)
		`, tables.Edits),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_document_idx
			ON %s (document_id, version, created_at, seq, id)
		`, tables.Edits, tables.Edits),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				document_id TEXT NOT NULL,
				version INTEGER NOT NULL,
				content TEXT NOT NULL,
				author_id TEXT NOT NULL,
				author_name TEXT NOT NULL,
				changes_summary TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				is_major BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE (document_id, version)
			)
		`, tables.Versions),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				document_id TEXT NOT NULL,
				author_id TEXT NOT NULL,
				author_name TEXT NOT NULL,
				content TEXT NOT NULL,
				position INTEGER NOT NULL,
				selection_text TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL,
				resolved BOOLEAN NOT NULL DEFAULT FALSE,
				resolved_by TEXT,
				thread_id UUID
			)
		`, tables.Comments),
		fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS %s_document_idx
			ON %s (document_id, created_at)
		`, tables.Comments, tables.Comments),
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	return nil
}
