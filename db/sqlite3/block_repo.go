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

const tableBlocks = "blocks"

type BlockRepository struct {
	db *sql.DB
}

var _ contents.BlockRepository = (*BlockRepository)(nil)

func NewBlockRepository(db *sql.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

const (
	blockFieldID         = "id"
	blockFieldDocumentID = "document_id"
	blockFieldKind       = "kind"
	blockFieldHTML       = "html"
	blockFieldPosition   = "position"
)

func blockColumns() []string {
	return []string{
		blockFieldID,
		blockFieldDocumentID,
		blockFieldKind,
		blockFieldHTML,
		blockFieldPosition,
	}
}

func scanBlock(row sq.RowScanner) (*contents.Block, error) {
	var block contents.Block

	err := row.Scan(
		&block.ID,
		&block.DocumentID,
		&block.Kind,
		&block.HTML,
		&block.Position,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &block, nil
}

func (repo *BlockRepository) Insert(ctx context.Context, block *contents.Block) error {
	q := sq.Insert(tableBlocks).
		Columns(blockColumns()...).
		Values(block.ID, block.DocumentID, block.Kind, block.HTML, block.Position)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *BlockRepository) Find(ctx context.Context, id string) (*contents.Block, error) {
	q := sq.Select(blockColumns()...).
		From(tableBlocks).
		Where(sq.Eq{blockFieldID: id})

	q = q.RunWith(repo.db)

	row := q.QueryRowContext(ctx)

	block, err := scanBlock(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contents.BlockNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to scan block: %w", err)
	}

	return block, nil
}

func (repo *BlockRepository) ListByDocument(ctx context.Context, documentID string) ([]*contents.Block, error) {
	q := sq.Select(blockColumns()...).
		From(tableBlocks).
		Where(sq.Eq{blockFieldDocumentID: documentID}).
		OrderBy(blockFieldPosition + " ASC")

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

	blocks := make([]*contents.Block, 0)

	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}

		blocks = append(blocks, block)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return blocks, nil
}

func (repo *BlockRepository) UpdateHTML(ctx context.Context, id, html string) error {
	q := sq.Update(tableBlocks).
		Set(blockFieldHTML, html).
		Where(sq.Eq{blockFieldID: id})

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
		return contents.BlockNotFoundError{ID: id}
	}

	return nil
}
