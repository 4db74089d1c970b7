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

const tableComments = "comments"

type CommentRepository struct {
	db *sql.DB
}

var _ discuss.CommentRepository = (*CommentRepository)(nil)

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const (
	commentFieldID           = "id"
	commentFieldDocumentID   = "document_id"
	commentFieldAuthorID     = "author_id"
	commentFieldContent      = "content"
	commentFieldBlockID      = "block_id"
	commentFieldStartOffset  = "start_offset"
	commentFieldEndOffset    = "end_offset"
	commentFieldSnapshotText = "snapshot_text"
	commentFieldCreatedAt    = "created_at"
	commentFieldUpdatedAt    = "updated_at"
)

func commentColumns() []string {
	return []string{
		commentFieldID,
		commentFieldDocumentID,
		commentFieldAuthorID,
		commentFieldContent,
		commentFieldBlockID,
		commentFieldStartOffset,
		commentFieldEndOffset,
		commentFieldSnapshotText,
		commentFieldCreatedAt,
		commentFieldUpdatedAt,
	}
}

func scanComment(row sq.RowScanner) (*discuss.Comment, error) {
	var comment discuss.Comment

	err := row.Scan(
		&comment.ID,
		&comment.DocumentID,
		&comment.AuthorID,
		&comment.Content,
		&comment.BlockID,
		&comment.StartOffset,
		&comment.EndOffset,
		&comment.SnapshotText,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &comment, nil
}

func (repo *CommentRepository) Insert(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Insert(tableComments).
		Columns(commentColumns()...).
		Values(
			comment.ID,
			comment.DocumentID,
			comment.AuthorID,
			comment.Content,
			comment.BlockID,
			comment.StartOffset,
			comment.EndOffset,
			comment.SnapshotText,
			comment.CreatedAt,
			comment.UpdatedAt,
		)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *CommentRepository) Find(ctx context.Context, id string) (*discuss.Comment, error) {
	q := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldID: id})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	comment, err := scanComment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, discuss.CommentNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}

	return comment, nil
}

func (repo *CommentRepository) ListByDocument(
	ctx context.Context,
	documentID string,
) ([]*discuss.Comment, error) {
	q := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldDocumentID: documentID}).
		OrderBy(commentFieldCreatedAt + " ASC")

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

	comments := make([]*discuss.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return comments, nil
}

func (repo *CommentRepository) Update(ctx context.Context, comment *discuss.Comment) error {
	q := sq.Update(tableComments).
		Set(commentFieldContent, comment.Content).
		Set(commentFieldUpdatedAt, comment.UpdatedAt).
		Where(sq.Eq{commentFieldID: comment.ID})

	q = q.RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec update: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return discuss.CommentNotFoundError{ID: comment.ID}
	}

	return nil
}

func (repo *CommentRepository) Delete(ctx context.Context, id string) error {
	q := sq.Delete(tableComments).
		Where(sq.Eq{commentFieldID: id})

	q = q.RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return discuss.CommentNotFoundError{ID: id}
	}

	return nil
}
