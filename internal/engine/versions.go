package engine

import (
	"context"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"quill/internal/config"
	"quill/internal/domain"
	"quill/internal/domain/models"
	"quill/internal/domain/services"
)

// CreateVersion cuts an immutable snapshot at the session's next version
// number. Allocation is serialized by the session mutex; the gateway's
// unique (document, version) constraint guards against other processes.
func (e *Engine) CreateVersion(ctx context.Context, documentID string, req *services.CreateVersionRequest) (*models.DocumentVersion, error) {
	if err := validateCreateVersion(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return e.createVersionLocked(ctx, s, req)
}

// createVersionLocked allocates current+1 and persists the snapshot.
// Caller holds s.mu. A persistence failure leaves current untouched, so a
// failed snapshot never burns a version number visible to readers.
func (e *Engine) createVersionLocked(ctx context.Context, s *session, req *services.CreateVersionRequest) (*models.DocumentVersion, error) {
	content := s.content
	if req.Content != nil {
		content = *req.Content
	}

	version := &models.DocumentVersion{
		ID:             uuid.NewString(),
		DocumentID:     s.documentID,
		Version:        s.current + 1,
		Content:        content,
		AuthorID:       req.AuthorID,
		AuthorName:     req.AuthorName,
		ChangesSummary: req.ChangesSummary,
		CreatedAt:      e.now(),
		IsMajor:        req.IsMajor,
	}

	if err := e.versions.Create(ctx, version); err != nil {
		return nil, err
	}

	s.current = version.Version
	s.sinceSnapshot = 0

	e.logger.Info("version created",
		"document_id", s.documentID,
		"version", version.Version,
		"is_major", version.IsMajor,
	)
	return version, nil
}

// LoadVersionHistory lists snapshots oldest first.
func (e *Engine) LoadVersionHistory(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	if _, err := e.ensure(ctx, documentID); err != nil {
		return nil, err
	}
	return e.versions.ListByDocument(ctx, documentID)
}

// RestoreVersion appends a new version copying a historical snapshot's
// content. The restored snapshot keeps its number; the copy gets max+1, so
// history stays strictly append-only.
func (e *Engine) RestoreVersion(ctx context.Context, documentID, versionID string, req *services.RestoreVersionRequest) (*models.DocumentVersion, error) {
	if versionID == "" {
		return nil, fmt.Errorf("%w: version id is required", domain.ErrValidation)
	}
	if err := validateRestore(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}

	snapshot, err := e.versions.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if snapshot.DocumentID != documentID {
		return nil, fmt.Errorf("version %s belongs to another document: %w", versionID, domain.ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return e.createVersionLocked(ctx, s, &services.CreateVersionRequest{
		AuthorID:       req.AuthorID,
		AuthorName:     req.AuthorName,
		ChangesSummary: fmt.Sprintf("Restored from version %d", snapshot.Version),
		Content:        &snapshot.Content,
	})
}

func validateCreateVersion(req *services.CreateVersionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.AuthorID, validation.Required),
		validation.Field(&req.AuthorName,
			validation.Required,
			validation.Length(1, config.MaxUserNameLength),
		),
		validation.Field(&req.ChangesSummary,
			validation.Length(0, config.MaxSummaryLength),
		),
	)
}

func validateRestore(req *services.RestoreVersionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.AuthorID, validation.Required),
		validation.Field(&req.AuthorName,
			validation.Required,
			validation.Length(1, config.MaxUserNameLength),
		),
	)
}
