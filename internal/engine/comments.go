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

// AddComment anchors a new root comment at a content offset.
func (e *Engine) AddComment(ctx context.Context, documentID string, req *services.AddCommentRequest) (*models.DocumentComment, error) {
	return e.addComment(ctx, documentID, req, nil)
}

// ReplyToComment adds a threaded reply. The thread always resolves to a root
// comment in the same document, even when the caller replies to a reply.
func (e *Engine) ReplyToComment(ctx context.Context, documentID, parentID string, req *services.AddCommentRequest) (*models.DocumentComment, error) {
	if parentID == "" {
		return nil, fmt.Errorf("%w: parent comment id is required", domain.ErrValidation)
	}

	parent, err := e.comments.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent.DocumentID != documentID {
		return nil, fmt.Errorf("comment %s belongs to another document: %w", parentID, domain.ErrNotFound)
	}

	threadID := parent.ID
	if parent.ThreadID != nil {
		threadID = *parent.ThreadID
	}
	return e.addComment(ctx, documentID, req, &threadID)
}

func (e *Engine) addComment(ctx context.Context, documentID string, req *services.AddCommentRequest, threadID *string) (*models.DocumentComment, error) {
	if err := validateComment(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s, err := e.ensure(ctx, documentID)
	if err != nil {
		return nil, err
	}

	// Truncate on character boundaries; cutting bytes could split a rune
	selection := req.SelectionText
	if runes := []rune(selection); len(runes) > config.MaxSelectionTextLength {
		selection = string(runes[:config.MaxSelectionTextLength])
	}

	comment := &models.DocumentComment{
		ID:            uuid.NewString(),
		DocumentID:    documentID,
		AuthorID:      req.AuthorID,
		AuthorName:    req.AuthorName,
		Content:       req.Content,
		Position:      req.Position,
		SelectionText: selection,
		CreatedAt:     e.now(),
		ThreadID:      threadID,
	}

	if err := e.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	e.logger.Info("comment added",
		"document_id", documentID,
		"comment_id", comment.ID,
		"reply", threadID != nil,
	)
	s.emit(services.Event{
		Type:       services.EventCommentAdded,
		DocumentID: documentID,
		At:         comment.CreatedAt,
		Payload:    comment,
	})
	return comment, nil
}

// ResolveComment marks a comment resolved by the given user. Monotonic: a
// resolved comment stays resolved, with its original resolver.
func (e *Engine) ResolveComment(ctx context.Context, documentID, commentID, resolvedBy string) error {
	if commentID == "" || resolvedBy == "" {
		return fmt.Errorf("%w: comment id and resolver are required", domain.ErrValidation)
	}

	if _, err := e.ensure(ctx, documentID); err != nil {
		return err
	}

	comment, err := e.comments.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.DocumentID != documentID {
		return fmt.Errorf("comment %s belongs to another document: %w", commentID, domain.ErrNotFound)
	}

	return e.comments.Resolve(ctx, commentID, resolvedBy)
}

// LoadComments lists all comments for a document, oldest first.
func (e *Engine) LoadComments(ctx context.Context, documentID string) ([]models.DocumentComment, error) {
	if _, err := e.ensure(ctx, documentID); err != nil {
		return nil, err
	}
	return e.comments.ListByDocument(ctx, documentID)
}

func validateComment(req *services.AddCommentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.AuthorID, validation.Required),
		validation.Field(&req.AuthorName,
			validation.Required,
			validation.Length(1, config.MaxUserNameLength),
		),
		validation.Field(&req.Content,
			validation.Required,
			validation.Length(1, config.MaxCommentLength),
		),
		validation.Field(&req.Position, validation.Min(0)),
	)
}
