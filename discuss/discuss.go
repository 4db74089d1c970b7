// Package discuss holds the comment and reply domain: creation, editing,
// deletion, and the thread projection consumed by the web templates.
// Highlight bookkeeping lives in the anchor and annotations packages; this
// package only stores the anchor fields alongside each comment.
package discuss

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	commentRepo CommentRepository
	replyRepo   ReplyRepository
}

func NewService(commentRepo CommentRepository, replyRepo ReplyRepository) *Service {
	return &Service{
		commentRepo: commentRepo,
		replyRepo:   replyRepo,
	}
}

type CreateCommentRequest struct {
	// ID is optional; when empty a new one is generated. The annotations
	// service pre-generates it so the highlight marker and the comment share
	// the same id.
	ID           string
	DocumentID   string
	AuthorID     string
	Content      string
	BlockID      string
	StartOffset  *int
	EndOffset    *int
	SnapshotText string
}

func (svc *Service) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	comment := &Comment{
		ID:           id,
		DocumentID:   req.DocumentID,
		AuthorID:     req.AuthorID,
		Content:      req.Content,
		BlockID:      req.BlockID,
		StartOffset:  req.StartOffset,
		EndOffset:    req.EndOffset,
		SnapshotText: req.SnapshotText,
		CreatedAt:    time.Now(),
	}

	err := svc.commentRepo.Insert(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	return comment, nil
}

func (svc *Service) GetComment(ctx context.Context, id string) (*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

func (svc *Service) ListComments(ctx context.Context, documentID string) ([]*Comment, error) {
	comments, err := svc.commentRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

// UpdateComment replaces the comment body. The anchor fields are read-only
// after creation and deliberately not touched here.
func (svc *Service) UpdateComment(ctx context.Context, id, content string) (*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	timeNow := time.Now()

	comment.Content = content
	comment.UpdatedAt = &timeNow

	err = svc.commentRepo.Update(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return comment, nil
}

// DeleteComment removes the comment and its replies. The caller is expected
// to unwrap the comment's highlight first; reaction cleanup belongs to the
// reactions service.
func (svc *Service) DeleteComment(ctx context.Context, id string) error {
	err := svc.replyRepo.DeleteByComment(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete replies: %w", err)
	}

	err = svc.commentRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}

type CreateReplyRequest struct {
	CommentID string
	AuthorID  string
	Content   string
	ReplyTo   string
}

func (svc *Service) CreateReply(ctx context.Context, req CreateReplyRequest) (*Reply, error) {
	// the parent must exist; a dangling reply would never render
	_, err := svc.commentRepo.Find(ctx, req.CommentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find parent comment: %w", err)
	}

	var replyTo *string
	if req.ReplyTo != "" {
		replyTo = &req.ReplyTo
	}

	reply := &Reply{
		ID:        uuid.NewString(),
		CommentID: req.CommentID,
		AuthorID:  req.AuthorID,
		ReplyTo:   replyTo,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	err = svc.replyRepo.Insert(ctx, reply)
	if err != nil {
		return nil, fmt.Errorf("failed to insert reply: %w", err)
	}

	return reply, nil
}

func (svc *Service) ListReplies(ctx context.Context, commentID string) ([]*Reply, error) {
	replies, err := svc.replyRepo.ListByComment(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replies: %w", err)
	}

	return replies, nil
}
