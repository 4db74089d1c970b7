package web

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/nasermirzaei89/marginalia/auth"
	authcontext "github.com/nasermirzaei89/marginalia/auth/context"
	"github.com/nasermirzaei89/marginalia/contents"
	"github.com/nasermirzaei89/marginalia/discuss"
	"github.com/nasermirzaei89/marginalia/reactions"
)

type DocumentSummary struct {
	contents.Document

	Author        *auth.User
	CommentsCount int
}

// DocumentPage is everything the document template renders: the blocks with
// their highlight markers already materialized, and the comment threads in
// the side panel.
type DocumentPage struct {
	Document *contents.Document
	Author   *auth.User
	Blocks   []*BlockView
	Threads  []*ThreadView
	UIState  uiState
	ReturnTo string
}

type BlockView struct {
	ID   string
	Kind contents.BlockKind

	// HTML is the stored fragment including any <mark> elements; it is
	// rendered unescaped, which is safe because fragments are only ever
	// produced by renderBlockFragment and the anchor package.
	HTML template.HTML
}

type ThreadView struct {
	Comment      *discuss.Comment
	Author       *auth.User
	Anchored     bool
	SnapshotText string
	IsOwn        bool
	Reactions    *ReactionWidgetData
	Replies      []*ReplyView
}

type ReplyView struct {
	Reply     *discuss.Reply
	Author    *auth.User
	IsOwn     bool
	Reactions *ReactionWidgetData
}

type ReactionWidgetData struct {
	TargetType      reactions.TargetType
	TargetID        string
	Options         []reactions.ReactionOption
	ReturnTo        string
	IsAuthenticated bool
	CSRFField       template.HTML
}

func (h *Handler) listDocumentsWithAuthors(
	ctx context.Context,
	documents []*contents.Document,
) ([]*DocumentSummary, error) {
	userCache := newUserCache(h.authSvc)

	result := make([]*DocumentSummary, 0, len(documents))

	for _, document := range documents {
		author, err := userCache.get(ctx, document.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("failed to get author: %w", err)
		}

		comments, err := h.discussSvc.ListComments(ctx, document.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments: %w", err)
		}

		result = append(result, &DocumentSummary{
			Document:      *document,
			Author:        author,
			CommentsCount: len(comments),
		})
	}

	return result, nil
}

func (h *Handler) buildDocumentPage(r *http.Request, documentID string) (*DocumentPage, error) {
	ctx := r.Context()
	returnTo := "/d/" + documentID
	currentUserID := h.currentUserIDFromRequest(r)
	csrfField := csrf.TemplateField(r)
	userCache := newUserCache(h.authSvc)

	document, err := h.contentsSvc.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	author, err := userCache.get(ctx, document.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get document author: %w", err)
	}

	blocks, err := h.contentsSvc.ListBlocks(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	blockViews := make([]*BlockView, 0, len(blocks))
	for _, block := range blocks {
		blockViews = append(blockViews, &BlockView{
			ID:   block.ID,
			Kind: block.Kind,
			HTML: template.HTML(block.HTML), //nolint:gosec
		})
	}

	comments, err := h.discussSvc.ListComments(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	allReplies := make([]*discuss.Reply, 0)

	for _, comment := range comments {
		replies, err := h.discussSvc.ListReplies(ctx, comment.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list replies: %w", err)
		}

		allReplies = append(allReplies, replies...)
	}

	threads := discuss.BuildThreads(comments, allReplies)

	threadViews := make([]*ThreadView, 0, len(threads))

	for _, thread := range threads {
		threadView, err := h.buildThreadView(ctx, thread, currentUserID, returnTo, csrfField, userCache)
		if err != nil {
			return nil, err
		}

		threadViews = append(threadViews, threadView)
	}

	return &DocumentPage{
		Document: document,
		Author:   author,
		Blocks:   blockViews,
		Threads:  threadViews,
		UIState:  h.getUIState(r),
		ReturnTo: returnTo,
	}, nil
}

func (h *Handler) buildThreadView(
	ctx context.Context,
	thread *discuss.Thread,
	currentUserID *string,
	returnTo string,
	csrfField template.HTML,
	userCache *userCache,
) (*ThreadView, error) {
	author, err := userCache.get(ctx, thread.Comment.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comment author: %w", err)
	}

	reactionData, err := h.buildReactionWidgetData(
		ctx,
		reactions.TargetTypeComment,
		thread.Comment.ID,
		currentUserID,
		returnTo,
		csrfField,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment reactions: %w", err)
	}

	threadView := &ThreadView{
		Comment:      thread.Comment,
		Author:       author,
		Anchored:     thread.Comment.Anchored(),
		SnapshotText: thread.Comment.SnapshotText,
		IsOwn:        currentUserID != nil && thread.Comment.AuthorID == *currentUserID,
		Reactions:    reactionData,
		Replies:      make([]*ReplyView, 0, len(thread.Replies)),
	}

	for _, reply := range thread.Replies {
		replyAuthor, err := userCache.get(ctx, reply.AuthorID)
		if err != nil {
			return nil, fmt.Errorf("failed to get reply author: %w", err)
		}

		replyReactions, err := h.buildReactionWidgetData(
			ctx,
			reactions.TargetTypeReply,
			reply.ID,
			currentUserID,
			returnTo,
			csrfField,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load reply reactions: %w", err)
		}

		threadView.Replies = append(threadView.Replies, &ReplyView{
			Reply:     reply,
			Author:    replyAuthor,
			IsOwn:     currentUserID != nil && reply.AuthorID == *currentUserID,
			Reactions: replyReactions,
		})
	}

	return threadView, nil
}

func (h *Handler) currentUserIDFromRequest(r *http.Request) *string {
	if !isAuthenticated(r) {
		return nil
	}

	currentUserID := authcontext.GetSubject(r.Context())
	if currentUserID == authcontext.Anonymous {
		return nil
	}

	return &currentUserID
}

func (h *Handler) buildReactionWidgetData(
	ctx context.Context,
	targetType reactions.TargetType,
	targetID string,
	currentUserID *string,
	returnTo string,
	csrfField template.HTML,
) (*ReactionWidgetData, error) {
	targetReactions, err := h.reactionsSvc.GetTargetReactions(ctx, targetType, targetID, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get target reactions: %w", err)
	}

	return &ReactionWidgetData{
		TargetType:      targetReactions.TargetType,
		TargetID:        targetReactions.TargetID,
		Options:         targetReactions.Options,
		ReturnTo:        returnTo,
		IsAuthenticated: currentUserID != nil,
		CSRFField:       csrfField,
	}, nil
}

// userCache avoids re-fetching the same author for every comment and reply
// on a page.
type userCache struct {
	authSvc *auth.Service
	users   map[string]*auth.User
}

func newUserCache(authSvc *auth.Service) *userCache {
	return &userCache{
		authSvc: authSvc,
		users:   make(map[string]*auth.User),
	}
}

func (c *userCache) get(ctx context.Context, userID string) (*auth.User, error) {
	if user, ok := c.users[userID]; ok {
		return user, nil
	}

	user, err := c.authSvc.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.users[userID] = user

	return user, nil
}
