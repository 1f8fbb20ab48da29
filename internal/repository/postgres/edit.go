package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
)

// PostgresEditRepository implements the EditRepository interface
type PostgresEditRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewEditRepository creates a new edit repository
func NewEditRepository(config *RepositoryConfig) repositories.EditRepository {
	return &PostgresEditRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create persists an accepted edit
func (r *PostgresEditRepository) Create(ctx context.Context, edit *models.DocumentEdit) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, user_id, user_name, edit_type, position, length, content, created_at, version, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Edits)

	_, err := r.pool.Exec(ctx, query,
		edit.ID,
		edit.DocumentID,
		edit.UserID,
		edit.UserName,
		string(edit.Type),
		edit.Position,
		edit.Length,
		edit.Content,
		edit.Timestamp,
		edit.Version,
		edit.Seq,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("edit %s already recorded: %w", edit.ID, domain.ErrValidation)
		}
		return fmt.Errorf("%w: create edit: %v", domain.ErrGatewayUnavailable, err)
	}

	return nil
}

// ListByDocument returns the ordered edit log for a document
func (r *PostgresEditRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentEdit, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, user_id, user_name, edit_type, position, length, content, created_at, version, seq
		FROM %s
		WHERE document_id = $1
		ORDER BY version ASC, created_at ASC, seq ASC, id ASC
	`, r.tables.Edits)

	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list edits: %v", domain.ErrGatewayUnavailable, err)
	}
	defer rows.Close()

	var edits []models.DocumentEdit
	for rows.Next() {
		var edit models.DocumentEdit
		var editType string
		err := rows.Scan(
			&edit.ID,
			&edit.DocumentID,
			&edit.UserID,
			&edit.UserName,
			&editType,
			&edit.Position,
			&edit.Length,
			&edit.Content,
			&edit.Timestamp,
			&edit.Version,
			&edit.Seq,
		)
		if err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		edit.Type = models.EditType(editType)
		edits = append(edits, edit)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate edits: %v", domain.ErrGatewayUnavailable, err)
	}

	return edits, nil
}

// Delete removes an edit from the log (structural undo)
func (r *PostgresEditRepository) Delete(ctx context.Context, editID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1
	`, r.tables.Edits)

	result, err := r.pool.Exec(ctx, query, editID)
	if err != nil {
		return fmt.Errorf("%w: delete edit: %v", domain.ErrGatewayUnavailable, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("edit %s: %w", editID, domain.ErrNotFound)
	}

	return nil
}
