package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/marginalia/contents"
)

const tableDocuments = "documents"

type DocumentRepository struct {
	db *sql.DB
}

var _ contents.DocumentRepository = (*DocumentRepository)(nil)

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const (
	documentFieldID        = "id"
	documentFieldAuthorID  = "author_id"
	documentFieldTitle     = "title"
	documentFieldCreatedAt = "created_at"
)

func documentColumns() []string {
	return []string{
		documentFieldID,
		documentFieldAuthorID,
		documentFieldTitle,
		documentFieldCreatedAt,
	}
}

func scanDocument(row sq.RowScanner) (*contents.Document, error) {
	var document contents.Document

	err := row.Scan(
		&document.ID,
		&document.AuthorID,
		&document.Title,
		&document.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &document, nil
}

func (repo *DocumentRepository) Insert(ctx context.Context, document *contents.Document) error {
	q := sq.Insert(tableDocuments).
		Columns(documentColumns()...).
		Values(document.ID, document.AuthorID, document.Title, document.CreatedAt)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *DocumentRepository) Find(ctx context.Context, id string) (*contents.Document, error) {
	q := sq.Select(documentColumns()...).
		From(tableDocuments).
		Where(sq.Eq{documentFieldID: id})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	document, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contents.DocumentNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return document, nil
}

func (repo *DocumentRepository) List(ctx context.Context) ([]*contents.Document, error) {
	q := sq.Select(documentColumns()...).
		From(tableDocuments).
		OrderBy(documentFieldCreatedAt + " ASC")

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

	documents := make([]*contents.Document, 0)

	for rows.Next() {
		document, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		documents = append(documents, document)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return documents, nil
}
