// Package contents stores block-based documents. Blocks are persisted as
// HTML fragments; the annotations package writes highlight markers back into
// them through UpdateBlockHTML.
package contents

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	documentRepo DocumentRepository
	blockRepo    BlockRepository
}

func NewService(documentRepo DocumentRepository, blockRepo BlockRepository) *Service {
	return &Service{
		documentRepo: documentRepo,
		blockRepo:    blockRepo,
	}
}

type CreateBlockRequest struct {
	Kind  BlockKind
	Title string
	Text  string
}

type CreateDocumentRequest struct {
	AuthorID string
	Title    string
	Blocks   []CreateBlockRequest
}

// CreateDocument stores a document and seeds its blocks. Each block fragment
// gets a generated block id and its text regions tagged for the anchoring
// subsystem.
func (svc *Service) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*Document, error) {
	document := &Document{
		ID:        uuid.NewString(),
		AuthorID:  req.AuthorID,
		Title:     req.Title,
		CreatedAt: time.Now(),
	}

	err := svc.documentRepo.Insert(ctx, document)
	if err != nil {
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	for i, blockReq := range req.Blocks {
		kind := blockReq.Kind
		if kind == "" {
			kind = BlockKindParagraph
		}

		block := &Block{
			ID:         uuid.NewString(),
			DocumentID: document.ID,
			Kind:       kind,
			Position:   i,
		}

		block.HTML = renderBlockFragment(block.ID, kind, blockReq.Title, blockReq.Text)

		err = svc.blockRepo.Insert(ctx, block)
		if err != nil {
			return nil, fmt.Errorf("failed to insert block: %w", err)
		}
	}

	return document, nil
}

// renderBlockFragment builds the stored HTML for a freshly created block.
// The data attributes form the contract with the anchor package: the root
// carries the block id, editable regions are tagged content-first.
func renderBlockFragment(blockID string, kind BlockKind, title, text string) string {
	content := fmt.Sprintf(`<p data-region="content">%s</p>`, html.EscapeString(text))

	if kind == BlockKindToggle && title != "" {
		return fmt.Sprintf(
			`<div data-block-id=%q data-kind=%q><span data-region="title">%s</span>%s</div>`,
			blockID, kind, html.EscapeString(title), content,
		)
	}

	return fmt.Sprintf(`<div data-block-id=%q data-kind=%q>%s</div>`, blockID, kind, content)
}

func (svc *Service) GetDocument(ctx context.Context, id string) (*Document, error) {
	document, err := svc.documentRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return document, nil
}

func (svc *Service) ListDocuments(ctx context.Context) ([]*Document, error) {
	documents, err := svc.documentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return documents, nil
}

func (svc *Service) GetBlock(ctx context.Context, id string) (*Block, error) {
	block, err := svc.blockRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find block: %w", err)
	}

	return block, nil
}

func (svc *Service) ListBlocks(ctx context.Context, documentID string) ([]*Block, error) {
	blocks, err := svc.blockRepo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	return blocks, nil
}

// UpdateBlockHTML writes a block fragment back, typically after highlight
// markers changed.
func (svc *Service) UpdateBlockHTML(ctx context.Context, id, html string) error {
	err := svc.blockRepo.UpdateHTML(ctx, id, html)
	if err != nil {
		return fmt.Errorf("failed to update block html: %w", err)
	}

	return nil
}
