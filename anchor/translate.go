package anchor

import "log/slog"

// TranslateResult is the outcome of converting a live selection range into
// an anchor. OK is false when the range cannot be traced to a block with an
// id, or when the block has no editable regions. Offsets are nil when the
// boundary points could not be located in the flattened text; the literal
// text is still captured so the fallback search can recover the highlight
// later.
type TranslateResult struct {
	OK          bool
	BlockID     string
	StartOffset *int
	EndOffset   *int
	Text        string
}

// Anchor converts a successful translation into the persisted anchor form.
func (res TranslateResult) Anchor(ownerID string) Anchor {
	return Anchor{
		OwnerID:      ownerID,
		BlockID:      res.BlockID,
		StartOffset:  res.StartOffset,
		EndOffset:    res.EndOffset,
		SnapshotText: res.Text,
	}
}

// Translate converts a non-collapsed selection range wholly contained in one
// block into an anchor, then wraps the range in a highlight marker owned by
// ownerID. Any pre-existing marker overlapping the range is removed first.
// Offsets are computed over the pre-wrap flattened text; wrapping changes
// only the DOM shape, never character counts.
func Translate(r TextRange, ownerID string) TranslateResult {
	if r.Collapsed() {
		return TranslateResult{}
	}

	blockID := BlockID(r.Start.Node)
	if blockID == "" {
		slog.Warn("selection start is not inside a block", "ownerId", ownerID)

		return TranslateResult{}
	}

	block := blockElementOf(r.Start.Node)

	ft, ok := Flatten(block)
	if !ok {
		slog.Warn("block has no editable regions", "blockId", blockID, "ownerId", ownerID)

		return TranslateResult{}
	}

	res := TranslateResult{
		OK:      true,
		BlockID: blockID,
		Text:    r.Text(),
	}

	if start, found := ft.OffsetOf(r.Start.Node, r.Start.Offset); found {
		if end, found := ft.OffsetOf(r.End.Node, r.End.Offset); found && start < end {
			res.StartOffset = &start
			res.EndOffset = &end
		}
	}

	UnwrapRange(r)
	Wrap(r, ownerID)

	return res
}
