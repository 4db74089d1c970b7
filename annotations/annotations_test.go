package annotations_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nasermirzaei89/marginalia/anchor"
	"github.com/nasermirzaei89/marginalia/annotations"
	"github.com/nasermirzaei89/marginalia/auth"
	"github.com/nasermirzaei89/marginalia/contents"
	"github.com/nasermirzaei89/marginalia/db/sqlite3"
	"github.com/nasermirzaei89/marginalia/discuss"
	"github.com/nasermirzaei89/marginalia/reactions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db           *sql.DB
	svc          *annotations.Service
	contentsSvc  *contents.Service
	discussSvc   *discuss.Service
	reactionsSvc *reactions.Service

	userID     string
	documentID string
	blockID    string
}

// newTestEnv wires the services against a fresh in-memory database seeded
// with one user and a single-paragraph document.
func newTestEnv(t *testing.T, name, blockText string) *testEnv {
	t.Helper()

	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := sqlite3.NewDB(ctx, dsn)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	err = sqlite3.MigrateUp(ctx, db)
	require.NoError(t, err)

	userRepo := sqlite3.NewUserRepository(db)
	documentRepo := sqlite3.NewDocumentRepository(db)
	blockRepo := sqlite3.NewBlockRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	replyRepo := sqlite3.NewReplyRepository(db)
	userReactionRepo := sqlite3.NewUserReactionRepository(db)

	contentsSvc := contents.NewService(documentRepo, blockRepo)
	discussSvc := discuss.NewService(commentRepo, replyRepo)
	reactionsSvc := reactions.NewService(userReactionRepo)
	svc := annotations.NewService(contentsSvc, discussSvc, reactionsSvc)

	user := &auth.User{
		ID:           uuid.NewString(),
		Username:     "commenter",
		PasswordHash: "not-a-real-hash",
		RegisteredAt: time.Now(),
	}

	err = userRepo.Insert(ctx, user)
	require.NoError(t, err)

	document, err := contentsSvc.CreateDocument(ctx, contents.CreateDocumentRequest{
		AuthorID: user.ID,
		Title:    "Test Document",
		Blocks: []contents.CreateBlockRequest{
			{Kind: contents.BlockKindParagraph, Text: blockText},
		},
	})
	require.NoError(t, err)

	blocks, err := contentsSvc.ListBlocks(ctx, document.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	return &testEnv{
		db:           db,
		svc:          svc,
		contentsSvc:  contentsSvc,
		discussSvc:   discussSvc,
		reactionsSvc: reactionsSvc,
		userID:       user.ID,
		documentID:   document.ID,
		blockID:      blocks[0].ID,
	}
}

func (env *testEnv) blockHTML(t *testing.T) string {
	t.Helper()

	block, err := env.contentsSvc.GetBlock(context.Background(), env.blockID)
	require.NoError(t, err)

	return block.HTML
}

func (env *testEnv) markerText(t *testing.T, commentID string) string {
	t.Helper()

	root, err := anchor.ParseBlockHTML(env.blockHTML(t))
	require.NoError(t, err)

	return anchor.MarkerText(root, commentID)
}

func TestStartCommentingAnchorsSelection(t *testing.T) {
	env := newTestEnv(t, "annotations_start_commenting", "The quick brown fox jumps over the lazy dog.")

	ctx := context.Background()

	comment, err := env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     env.blockID,
		StartOffset: 4,
		EndOffset:   15,
		AuthorID:    env.userID,
		Content:     "nice phrase",
	})
	require.NoError(t, err)

	assert.True(t, comment.Anchored())
	assert.Equal(t, "quick brown", comment.SnapshotText)

	require.NotNil(t, comment.StartOffset)
	require.NotNil(t, comment.EndOffset)
	assert.Equal(t, 4, *comment.StartOffset)
	assert.Equal(t, 15, *comment.EndOffset)

	assert.Equal(t, "quick brown", env.markerText(t, comment.ID))
}

func TestStartCommentingOutOfRangeStaysUnanchored(t *testing.T) {
	env := newTestEnv(t, "annotations_out_of_range", "Short text.")

	ctx := context.Background()

	comment, err := env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     env.blockID,
		StartOffset: 3,
		EndOffset:   500,
		AuthorID:    env.userID,
		Content:     "where does this go",
	})
	require.NoError(t, err)

	assert.False(t, comment.Anchored())
	assert.NotContains(t, env.blockHTML(t), "<mark")
}

func TestStartCommentingInsertFailureLeavesBlockUnmarked(t *testing.T) {
	env := newTestEnv(t, "annotations_insert_failure", "The quick brown fox jumps over the lazy dog.")

	ctx := context.Background()

	before := env.blockHTML(t)

	// sabotage the comment store; the translated selection must not reach the
	// block when the insert fails
	_, err := env.db.ExecContext(ctx, "DROP TABLE comments")
	require.NoError(t, err)

	_, err = env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     env.blockID,
		StartOffset: 4,
		EndOffset:   15,
		AuthorID:    env.userID,
		Content:     "nice phrase",
	})
	require.Error(t, err)

	assert.Equal(t, before, env.blockHTML(t))
	assert.NotContains(t, env.blockHTML(t), "<mark")
}

func TestSyncDocumentReanchorsAfterEdit(t *testing.T) {
	env := newTestEnv(t, "annotations_sync_edit", "The quick brown fox jumps over the lazy dog.")

	ctx := context.Background()

	comment, err := env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     env.blockID,
		StartOffset: 4,
		EndOffset:   15,
		AuthorID:    env.userID,
		Content:     "nice phrase",
	})
	require.NoError(t, err)
	require.True(t, comment.Anchored())

	// an editor rewrote the block, shifting the quoted text and dropping the
	// markers entirely
	edited := fmt.Sprintf(
		`<div data-block-id=%q data-kind="paragraph"><p data-region="content">The very quick brown fox jumps over the lazy dog.</p></div>`,
		env.blockID,
	)

	err = env.contentsSvc.UpdateBlockHTML(ctx, env.blockID, edited)
	require.NoError(t, err)

	err = env.svc.SyncDocument(ctx, env.documentID)
	require.NoError(t, err)

	// the stored offsets no longer match, so the highlight comes back via
	// the snapshot text search at its shifted position
	assert.Equal(t, "quick brown", env.markerText(t, comment.ID))

	// a second sync must not rewrite the block again
	htmlAfterFirst := env.blockHTML(t)

	err = env.svc.SyncDocument(ctx, env.documentID)
	require.NoError(t, err)

	assert.Equal(t, htmlAfterFirst, env.blockHTML(t))
}

func TestSyncDocumentDropsUnrecoverableHighlight(t *testing.T) {
	env := newTestEnv(t, "annotations_sync_gone", "The quick brown fox jumps over the lazy dog.")

	ctx := context.Background()

	comment, err := env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     env.blockID,
		StartOffset: 4,
		EndOffset:   15,
		AuthorID:    env.userID,
		Content:     "nice phrase",
	})
	require.NoError(t, err)
	require.True(t, comment.Anchored())

	// the quoted text was deleted outright
	edited := fmt.Sprintf(
		`<div data-block-id=%q data-kind="paragraph"><p data-region="content">Something else entirely.</p></div>`,
		env.blockID,
	)

	err = env.contentsSvc.UpdateBlockHTML(ctx, env.blockID, edited)
	require.NoError(t, err)

	err = env.svc.SyncDocument(ctx, env.documentID)
	require.NoError(t, err)

	// the comment survives unhighlighted
	assert.NotContains(t, env.blockHTML(t), "<mark")

	kept, err := env.discussSvc.GetComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "nice phrase", kept.Content)
}

func TestDeleteCommentCleansUpEverything(t *testing.T) {
	env := newTestEnv(t, "annotations_delete", "The quick brown fox jumps over the lazy dog.")

	ctx := context.Background()

	comment, err := env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     env.blockID,
		StartOffset: 4,
		EndOffset:   15,
		AuthorID:    env.userID,
		Content:     "nice phrase",
	})
	require.NoError(t, err)
	require.True(t, comment.Anchored())

	reply, err := env.discussSvc.CreateReply(ctx, discuss.CreateReplyRequest{
		CommentID: comment.ID,
		AuthorID:  env.userID,
		Content:   "agreed",
	})
	require.NoError(t, err)

	_, err = env.reactionsSvc.ToggleReaction(ctx, reactions.TargetTypeComment, comment.ID, env.userID, "👍")
	require.NoError(t, err)

	_, err = env.reactionsSvc.ToggleReaction(ctx, reactions.TargetTypeReply, reply.ID, env.userID, "🎉")
	require.NoError(t, err)

	err = env.svc.DeleteComment(ctx, comment.ID)
	require.NoError(t, err)

	assert.NotContains(t, env.blockHTML(t), "<mark")

	_, err = env.discussSvc.GetComment(ctx, comment.ID)

	var commentNotFoundErr discuss.CommentNotFoundError
	assert.ErrorAs(t, err, &commentNotFoundErr)

	replies, err := env.discussSvc.ListReplies(ctx, comment.ID)
	require.NoError(t, err)
	assert.Empty(t, replies)

	commentReactions, err := env.reactionsSvc.GetTargetReactions(ctx, reactions.TargetTypeComment, comment.ID, nil)
	require.NoError(t, err)

	for _, option := range commentReactions.Options {
		assert.Zero(t, option.Count)
	}
}

func TestDocumentOf(t *testing.T) {
	env := newTestEnv(t, "annotations_document_of", "The quick brown fox jumps over the lazy dog.")

	ctx := context.Background()

	comment, err := env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     env.blockID,
		StartOffset: 0,
		EndOffset:   3,
		AuthorID:    env.userID,
		Content:     "opening words",
	})
	require.NoError(t, err)

	documentID, err := env.svc.DocumentOf(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, env.documentID, documentID)

	_, err = env.svc.DocumentOf(ctx, "no-such-comment")
	require.Error(t, err)
}

func TestStartCommentingOnForeignBlockStaysUnanchored(t *testing.T) {
	env := newTestEnv(t, "annotations_foreign_block", "The quick brown fox jumps over the lazy dog.")

	ctx := context.Background()

	comment, err := env.svc.StartCommenting(ctx, annotations.StartCommentingRequest{
		DocumentID:  env.documentID,
		BlockID:     "block-from-another-document",
		StartOffset: 0,
		EndOffset:   3,
		AuthorID:    env.userID,
		Content:     "lost selection",
	})
	require.NoError(t, err)

	assert.False(t, comment.Anchored())
	assert.False(t, strings.Contains(env.blockHTML(t), "<mark"))
}
