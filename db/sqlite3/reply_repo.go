package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/marginalia/discuss"
)

const tableReplies = "replies"

type ReplyRepository struct {
	db *sql.DB
}

var _ discuss.ReplyRepository = (*ReplyRepository)(nil)

func NewReplyRepository(db *sql.DB) *ReplyRepository {
	return &ReplyRepository{db: db}
}

const (
	replyFieldID        = "id"
	replyFieldCommentID = "comment_id"
	replyFieldAuthorID  = "author_id"
	replyFieldReplyTo   = "reply_to"
	replyFieldContent   = "content"
	replyFieldCreatedAt = "created_at"
)

func replyColumns() []string {
	return []string{
		replyFieldID,
		replyFieldCommentID,
		replyFieldAuthorID,
		replyFieldReplyTo,
		replyFieldContent,
		replyFieldCreatedAt,
	}
}

func scanReply(row sq.RowScanner) (*discuss.Reply, error) {
	var reply discuss.Reply

	err := row.Scan(
		&reply.ID,
		&reply.CommentID,
		&reply.AuthorID,
		&reply.ReplyTo,
		&reply.Content,
		&reply.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &reply, nil
}

func (repo *ReplyRepository) Insert(ctx context.Context, reply *discuss.Reply) error {
	q := sq.Insert(tableReplies).
		Columns(replyColumns()...).
		Values(
			reply.ID,
			reply.CommentID,
			reply.AuthorID,
			reply.ReplyTo,
			reply.Content,
			reply.CreatedAt,
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *ReplyRepository) Find(ctx context.Context, id string) (*discuss.Reply, error) {
	q := sq.Select(replyColumns()...).
		From(tableReplies).
		Where(sq.Eq{replyFieldID: id})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	reply, err := scanReply(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, discuss.ReplyNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to scan reply: %w", err)
	}

	return reply, nil
}

func (repo *ReplyRepository) ListByComment(ctx context.Context, commentID string) ([]*discuss.Reply, error) {
	q := sq.Select(replyColumns()...).
		From(tableReplies).
		Where(sq.Eq{replyFieldCommentID: commentID}).
		OrderBy(replyFieldCreatedAt + " ASC")

	q = q.RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	replies := make([]*discuss.Reply, 0)

	for rows.Next() {
		reply, err := scanReply(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}

		replies = append(replies, reply)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return replies, nil
}

func (repo *ReplyRepository) DeleteByComment(ctx context.Context, commentID string) error {
	q := sq.Delete(tableReplies).
		Where(sq.Eq{replyFieldCommentID: commentID})

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	return nil
}
