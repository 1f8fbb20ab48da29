package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/repositories"
)

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(config *RepositoryConfig) repositories.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create persists an immutable snapshot. The UNIQUE (document_id, version)
// constraint is the cross-process guard against two snapshots claiming the
// same number.
func (r *PostgresVersionRepository) Create(ctx context.Context, version *models.DocumentVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, version, content, author_id, author_name, changes_summary, created_at, is_major)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Versions)

	_, err := r.pool.Exec(ctx, query,
		version.ID,
		version.DocumentID,
		version.Version,
		version.Content,
		version.AuthorID,
		version.AuthorName,
		version.ChangesSummary,
		version.CreatedAt,
		version.IsMajor,
	)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("version %d of document %s already exists: %w",
				version.Version, version.DocumentID, domain.ErrValidation)
		}
		return fmt.Errorf("%w: create version: %v", domain.ErrGatewayUnavailable, err)
	}

	return nil
}

// GetByID retrieves a snapshot by ID
func (r *PostgresVersionRepository) GetByID(ctx context.Context, versionID string) (*models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, version, content, author_id, author_name, changes_summary, created_at, is_major
		FROM %s
		WHERE id = $1
	`, r.tables.Versions)

	var version models.DocumentVersion
	err := r.pool.QueryRow(ctx, query, versionID).Scan(
		&version.ID,
		&version.DocumentID,
		&version.Version,
		&version.Content,
		&version.AuthorID,
		&version.AuthorName,
		&version.ChangesSummary,
		&version.CreatedAt,
		&version.IsMajor,
	)

	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: get version: %v", domain.ErrGatewayUnavailable, err)
	}

	return &version, nil
}

// ListByDocument returns all snapshots for a document, oldest first
func (r *PostgresVersionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, version, content, author_id, author_name, changes_summary, created_at, is_major
		FROM %s
		WHERE document_id = $1
		ORDER BY version ASC
	`, r.tables.Versions)

	rows, err := r.pool.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", domain.ErrGatewayUnavailable, err)
	}
	defer rows.Close()

	var versions []models.DocumentVersion
	for rows.Next() {
		var version models.DocumentVersion
		err := rows.Scan(
			&version.ID,
			&version.DocumentID,
			&version.Version,
			&version.Content,
			&version.AuthorID,
			&version.AuthorName,
			&version.ChangesSummary,
			&version.CreatedAt,
			&version.IsMajor,
		)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate versions: %v", domain.ErrGatewayUnavailable, err)
	}

	return versions, nil
}
