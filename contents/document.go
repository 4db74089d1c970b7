package contents

import (
	"context"
	"fmt"
	"time"
)

type Document struct {
	ID        string
	AuthorID  string
	Title     string
	CreatedAt time.Time
}

type BlockKind string

const (
	BlockKindParagraph BlockKind = "paragraph"
	BlockKindToggle    BlockKind = "toggle"
	BlockKindCallout   BlockKind = "callout"
)

// Block is one structural unit of a document. HTML holds the stored
// fragment, including any highlight markers; Position orders blocks within
// the document.
type Block struct {
	ID         string
	DocumentID string
	Kind       BlockKind
	HTML       string
	Position   int
}

type DocumentRepository interface {
	Insert(ctx context.Context, document *Document) (err error)
	Find(ctx context.Context, id string) (document *Document, err error)
	List(ctx context.Context) (documents []*Document, err error)
}

type BlockRepository interface {
	Insert(ctx context.Context, block *Block) (err error)
	Find(ctx context.Context, id string) (block *Block, err error)
	ListByDocument(ctx context.Context, documentID string) (blocks []*Block, err error)
	UpdateHTML(ctx context.Context, id, html string) (err error)
}

type DocumentNotFoundError struct {
	ID string
}

func (err DocumentNotFoundError) Error() string {
	return fmt.Sprintf("document with id %q not found", err.ID)
}

type BlockNotFoundError struct {
	ID string
}

func (err BlockNotFoundError) Error() string {
	return fmt.Sprintf("block with id %q not found", err.ID)
}
