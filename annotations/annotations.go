// Package annotations coordinates the anchoring subsystem with the comment
// store and the block store: it is the entry point the web layer calls when
// a user comments on a selection, when a document's highlights need to be
// re-synced, and when a comment is deleted.
package annotations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/marginalia/anchor"
	"github.com/nasermirzaei89/marginalia/contents"
	"github.com/nasermirzaei89/marginalia/discuss"
	"github.com/nasermirzaei89/marginalia/reactions"
)

type Service struct {
	contentsSvc  *contents.Service
	discussSvc   *discuss.Service
	reactionsSvc *reactions.Service
}

func NewService(
	contentsSvc *contents.Service,
	discussSvc *discuss.Service,
	reactionsSvc *reactions.Service,
) *Service {
	return &Service{
		contentsSvc:  contentsSvc,
		discussSvc:   discussSvc,
		reactionsSvc: reactionsSvc,
	}
}

type StartCommentingRequest struct {
	DocumentID  string
	BlockID     string
	StartOffset int
	EndOffset   int
	AuthorID    string
	Content     string
}

// StartCommenting creates a comment anchored to the selected range of one
// block. The selection arrives as flattened offsets captured client-side.
// Anchoring failure is never fatal: the comment is stored unanchored and
// simply stays unhighlighted (the failure is logged, not surfaced).
func (svc *Service) StartCommenting(ctx context.Context, req StartCommentingRequest) (*discuss.Comment, error) {
	commentID := uuid.NewString()

	createReq := discuss.CreateCommentRequest{
		ID:         commentID,
		DocumentID: req.DocumentID,
		AuthorID:   req.AuthorID,
		Content:    req.Content,
	}

	res, rendered := svc.translateSelection(ctx, req, commentID)
	if res.OK {
		createReq.BlockID = res.BlockID
		createReq.StartOffset = res.StartOffset
		createReq.EndOffset = res.EndOffset
		createReq.SnapshotText = res.Text
	}

	comment, err := svc.discussSvc.CreateComment(ctx, createReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	// the wrapped block is persisted only after the comment exists, so a
	// failed insert never strands an ownerless marker in the stored fragment
	if res.OK {
		err = svc.contentsSvc.UpdateBlockHTML(ctx, res.BlockID, rendered)
		if err != nil {
			// the comment still carries its anchor; the next SyncDocument
			// materializes the highlight
			slog.WarnContext(ctx, "failed to persist wrapped block",
				"blockId", res.BlockID, "error", err)
		}
	}

	return comment, nil
}

// translateSelection runs the range-to-anchor translation against the stored
// block fragment and returns the wrapped rendering alongside the result. Any
// failure yields a not-OK result; the caller degrades to an unanchored
// comment. Persisting the rendering is the caller's job.
func (svc *Service) translateSelection(
	ctx context.Context,
	req StartCommentingRequest,
	commentID string,
) (anchor.TranslateResult, string) {
	block, err := svc.contentsSvc.GetBlock(ctx, req.BlockID)
	if err != nil || block.DocumentID != req.DocumentID {
		slog.WarnContext(ctx, "selection block not found, comment stays unanchored",
			"blockId", req.BlockID, "documentId", req.DocumentID, "error", err)

		return anchor.TranslateResult{}, ""
	}

	root, err := anchor.ParseBlockHTML(block.HTML)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse block fragment", "blockId", block.ID, "error", err)

		return anchor.TranslateResult{}, ""
	}

	ft, ok := anchor.Flatten(root)
	if !ok {
		slog.WarnContext(ctx, "block has no editable regions", "blockId", block.ID)

		return anchor.TranslateResult{}, ""
	}

	r, ok := ft.Range(req.StartOffset, req.EndOffset)
	if !ok || r.Collapsed() {
		slog.WarnContext(ctx, "selection offsets out of range",
			"blockId", block.ID, "start", req.StartOffset, "end", req.EndOffset)

		return anchor.TranslateResult{}, ""
	}

	res := anchor.Translate(r, commentID)
	if !res.OK {
		return res, ""
	}

	rendered, err := anchor.RenderBlockHTML(root)
	if err != nil {
		slog.WarnContext(ctx, "failed to render wrapped block", "blockId", block.ID, "error", err)

		return anchor.TranslateResult{}, ""
	}

	return res, rendered
}

// SyncDocument is the full highlight resync: every marker in every block is
// removed, and each comment's anchor is materialized again from scratch.
// Idempotent and safe to call on every document view; anchors that cannot
// be recovered leave their comments unhighlighted without error.
func (svc *Service) SyncDocument(ctx context.Context, documentID string) error {
	_, err := svc.contentsSvc.GetDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	blocks, err := svc.contentsSvc.ListBlocks(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}

	comments, err := svc.discussSvc.ListComments(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list comments: %w", err)
	}

	byBlock := make(map[string][]*discuss.Comment)

	for _, comment := range comments {
		if comment.Anchored() {
			byBlock[comment.BlockID] = append(byBlock[comment.BlockID], comment)
		}
	}

	for _, block := range blocks {
		err := svc.syncBlock(ctx, block, byBlock[block.ID])
		if err != nil {
			return fmt.Errorf("failed to sync block %q: %w", block.ID, err)
		}
	}

	return nil
}

func (svc *Service) syncBlock(ctx context.Context, block *contents.Block, comments []*discuss.Comment) error {
	root, err := anchor.ParseBlockHTML(block.HTML)
	if err != nil {
		// a malformed fragment should not block the rest of the document
		slog.WarnContext(ctx, "failed to parse block fragment, skipping sync",
			"blockId", block.ID, "error", err)

		return nil
	}

	anchor.UnwrapAll(root)

	for _, comment := range comments {
		materialized := anchor.Materialize(root, anchor.Anchor{
			OwnerID:      comment.ID,
			BlockID:      comment.BlockID,
			StartOffset:  comment.StartOffset,
			EndOffset:    comment.EndOffset,
			SnapshotText: comment.SnapshotText,
		})
		if !materialized {
			slog.WarnContext(ctx, "comment highlight not recovered",
				"commentId", comment.ID, "blockId", block.ID)
		}
	}

	rendered, err := anchor.RenderBlockHTML(root)
	if err != nil {
		return fmt.Errorf("failed to render block: %w", err)
	}

	if rendered == block.HTML {
		return nil
	}

	err = svc.contentsSvc.UpdateBlockHTML(ctx, block.ID, rendered)
	if err != nil {
		return fmt.Errorf("failed to persist block: %w", err)
	}

	block.HTML = rendered

	return nil
}

// DeleteComment removes a comment, its replies, all their reactions, and the
// comment's highlight markers. A failure to clean the highlight is logged
// and does not abort the deletion; the next SyncDocument sweeps leftovers.
func (svc *Service) DeleteComment(ctx context.Context, commentID string) error {
	comment, err := svc.discussSvc.GetComment(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}

	if comment.Anchored() {
		svc.removeHighlight(ctx, comment)
	}

	replies, err := svc.discussSvc.ListReplies(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to list replies: %w", err)
	}

	for _, reply := range replies {
		err = svc.reactionsSvc.RemoveTargetReactions(ctx, reactions.TargetTypeReply, reply.ID)
		if err != nil {
			return fmt.Errorf("failed to remove reply reactions: %w", err)
		}
	}

	err = svc.reactionsSvc.RemoveTargetReactions(ctx, reactions.TargetTypeComment, commentID)
	if err != nil {
		return fmt.Errorf("failed to remove comment reactions: %w", err)
	}

	err = svc.discussSvc.DeleteComment(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}

func (svc *Service) removeHighlight(ctx context.Context, comment *discuss.Comment) {
	block, err := svc.contentsSvc.GetBlock(ctx, comment.BlockID)
	if err != nil {
		slog.WarnContext(ctx, "highlight block not found on delete",
			"commentId", comment.ID, "blockId", comment.BlockID, "error", err)

		return
	}

	root, err := anchor.ParseBlockHTML(block.HTML)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse block fragment on delete",
			"blockId", block.ID, "error", err)

		return
	}

	if anchor.Unwrap(root, comment.ID) == 0 {
		return
	}

	rendered, err := anchor.RenderBlockHTML(root)
	if err != nil {
		slog.WarnContext(ctx, "failed to render block on delete", "blockId", block.ID, "error", err)

		return
	}

	err = svc.contentsSvc.UpdateBlockHTML(ctx, block.ID, rendered)
	if err != nil {
		slog.WarnContext(ctx, "failed to persist block on delete", "blockId", block.ID, "error", err)
	}
}

// DocumentOf resolves the owning document of a comment, for building
// copy-link targets of the form /d/{documentId}#comment-{commentId}.
func (svc *Service) DocumentOf(ctx context.Context, commentID string) (string, error) {
	comment, err := svc.discussSvc.GetComment(ctx, commentID)
	if err != nil {
		return "", fmt.Errorf("failed to find comment: %w", err)
	}

	return comment.DocumentID, nil
}
