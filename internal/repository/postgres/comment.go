package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
)

// PostgresCommentRepository implements the CommentRepository interface.
// Comments are append-and-resolve only; there is no delete path.
type PostgresCommentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(config *RepositoryConfig) repositories.CommentRepository {
	return &PostgresCommentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create persists a new comment or reply
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *models.DocumentComment) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, author_id, author_name, content, position, selection_text, created_at, resolved, resolved_by, thread_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Comments)

	_, err := r.pool.Exec(ctx, query,
		comment.ID,
		comment.DocumentID,
		comment.AuthorID,
		comment.AuthorName,
		comment.Content,
		comment.Position,
		comment.SelectionText,
		comment.CreatedAt,
		comment.Resolved,
		comment.ResolvedBy,
		comment.ThreadID,
	)

	if err != nil {
		return fmt.Errorf("%w: create comment: %v", domain.ErrGatewayUnavailable, err)
	}

	return nil
}

// GetByID retrieves a comment
func (r *PostgresCommentRepository) GetByID(ctx context.Context, commentID string) (*models.DocumentComment, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, author_id, author_name, content, position, selection_text, created_at, resolved, resolved_by, thread_id
		FROM %s
		WHERE id = $1
	`, r.tables.Comments)

	var comment models.DocumentComment
	err := r.pool.QueryRow(ctx, query, commentID).Scan(
		&comment.ID,
		&comment.DocumentID,
		&comment.AuthorID,
		&comment.AuthorName,
		&comment.Content,
		&comment.Position,
		&comment.SelectionText,
		&comment.CreatedAt,
		&comment.Resolved,
		&comment.ResolvedBy,
		&comment.ThreadID,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get comment: %v", domain.ErrGatewayUnavailable, err)
	}

	return &comment, nil
}

// ListByDocument returns all comments for a document, oldest first
func (r *PostgresCommentRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentComment, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, author_id, author_name, content, position, selection_text, created_at, resolved, resolved_by, thread_id
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at ASC, id ASC
	`, r.tables.Comments)

	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list comments: %v", domain.ErrGatewayUnavailable, err)
	}
	defer rows.Close()

	var comments []models.DocumentComment
	for rows.Next() {
		var comment models.DocumentComment
		err := rows.Scan(
			&comment.ID,
			&comment.DocumentID,
			&comment.AuthorID,
			&comment.AuthorName,
			&comment.Content,
			&comment.Position,
			&comment.SelectionText,
			&comment.CreatedAt,
			&comment.Resolved,
			&comment.ResolvedBy,
			&comment.ThreadID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate comments: %v", domain.ErrGatewayUnavailable, err)
	}

	return comments, nil
}

// Resolve marks a comment resolved. Already-resolved comments stay resolved
// with their original resolver.
func (r *PostgresCommentRepository) Resolve(ctx context.Context, commentID, resolvedBy string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET resolved = TRUE, resolved_by = COALESCE(resolved_by, $1)
		WHERE id = $2
	`, r.tables.Comments)

	result, err := r.pool.Exec(ctx, query, resolvedBy, commentID)
	if err != nil {
		return fmt.Errorf("%w: resolve comment: %v", domain.ErrGatewayUnavailable, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("comment %s: %w", commentID, domain.ErrNotFound)
	}

	return nil
}
