package discuss

import (
	"context"
	"fmt"
	"time"
)

// Comment is a top-level comment on a document. The anchor fields describe
// the highlighted text range inside one block; they are set once at creation
// and never updated afterwards, except being cleared together with the
// comment on deletion. Offsets can be nil when offset recovery failed at
// creation time; SnapshotText alone still allows fallback recovery.
type Comment struct {
	ID           string
	DocumentID   string
	AuthorID     string
	Content      string
	BlockID      string
	StartOffset  *int
	EndOffset    *int
	SnapshotText string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// Anchored reports whether the comment carries an anchor worth
// materializing.
func (c *Comment) Anchored() bool {
	return c.BlockID != "" && c.SnapshotText != ""
}

// Reply belongs to one comment. ReplyTo optionally references a sibling
// reply for reply-to-reply threads; replies render as flat siblings and
// consumers infer nesting from it. Replies never carry an anchor.
type Reply struct {
	ID        string
	CommentID string
	AuthorID  string
	ReplyTo   *string
	Content   string
	CreatedAt time.Time
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, id string) (comment *Comment, err error)
	ListByDocument(ctx context.Context, documentID string) (comments []*Comment, err error)
	Update(ctx context.Context, comment *Comment) (err error)
	Delete(ctx context.Context, id string) (err error)
}

type ReplyRepository interface {
	Insert(ctx context.Context, reply *Reply) (err error)
	Find(ctx context.Context, id string) (reply *Reply, err error)
	ListByComment(ctx context.Context, commentID string) (replies []*Reply, err error)
	DeleteByComment(ctx context.Context, commentID string) (err error)
}

type CommentNotFoundError struct {
	ID string
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %q not found", err.ID)
}

type ReplyNotFoundError struct {
	ID string
}

func (err ReplyNotFoundError) Error() string {
	return fmt.Sprintf("reply with id %q not found", err.ID)
}
