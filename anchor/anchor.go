// Package anchor turns text selections inside document blocks into durable,
// serializable anchors and re-applies them as highlight markers when a block
// is loaded again. Blocks are HTML fragments parsed with golang.org/x/net/html;
// a highlight marker is a <mark data-comment-id="..."> element wrapping text
// nodes only.
package anchor

import "fmt"

const (
	// AttrBlockID tags the root element of a structural content block.
	AttrBlockID = "data-block-id"

	// AttrCommentID tags a highlight marker with its owning comment id.
	AttrCommentID = "data-comment-id"

	// AttrRegion tags an editable text region inside a block. Regions are
	// flattened in a fixed order: content regions first, then title regions.
	AttrRegion = "data-region"

	RegionContent = "content"
	RegionTitle   = "title"
)

// Anchor describes the text range a comment highlights. It is created once,
// at comment creation time, and read-only afterwards. SnapshotText is never
// updated even if the underlying block text changes; it drives the fallback
// search on materialization.
type Anchor struct {
	OwnerID      string
	BlockID      string
	StartOffset  *int
	EndOffset    *int
	SnapshotText string
}

// HasOffsets reports whether the anchor carries a usable offset pair.
func (a Anchor) HasOffsets() bool {
	return a.StartOffset != nil && a.EndOffset != nil && *a.StartOffset < *a.EndOffset
}

type BlockElementNotFoundError struct{}

func (err BlockElementNotFoundError) Error() string {
	return fmt.Sprintf("no element with %s attribute found in fragment", AttrBlockID)
}

type NoEditableRegionsError struct {
	BlockID string
}

func (err NoEditableRegionsError) Error() string {
	return fmt.Sprintf("block %q has no editable regions", err.BlockID)
}
