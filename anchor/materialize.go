package anchor

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Materialize re-applies a persisted anchor to a freshly loaded block tree.
// Idempotent: when a marker for the anchor's owner already exists, nothing
// changes. It first tries the stored offsets, validating the reconstructed
// text against the snapshot; on any mismatch it falls back to a literal
// search for the snapshot text, skipping regions that are already
// highlighted, and accepts the first non-overlapping occurrence in document
// order. Returns whether a marker is present after the call. Recovery
// failure is not an error: the comment stays in the store unhighlighted.
func Materialize(block *html.Node, a Anchor) bool {
	if block == nil || a.OwnerID == "" {
		return false
	}

	if len(FindMarkers(block, a.OwnerID)) > 0 {
		return true
	}

	ft, ok := Flatten(block)
	if !ok {
		slog.Warn("cannot materialize anchor: block has no editable regions",
			"blockId", a.BlockID, "ownerId", a.OwnerID)

		return false
	}

	if r, ok := offsetCandidate(ft, a); ok {
		Wrap(r, a.OwnerID)

		return true
	}

	r, ok := searchCandidate(ft, a.SnapshotText)
	if !ok {
		slog.Warn("anchor recovery failed, comment stays unhighlighted",
			"blockId", a.BlockID, "ownerId", a.OwnerID)

		return false
	}

	Wrap(r, a.OwnerID)

	return true
}

// offsetCandidate reconstructs the range from stored offsets and validates
// its text against the snapshot. Validation failure means the block text
// shifted since the anchor was created; the caller proceeds to the fallback
// search.
func offsetCandidate(ft *FlatText, a Anchor) (TextRange, bool) {
	if !a.HasOffsets() {
		return TextRange{}, false
	}

	start, end := *a.StartOffset, *a.EndOffset
	if start < 0 || end > ft.Len() {
		return TextRange{}, false
	}

	if ft.Slice(start, end) != a.SnapshotText {
		return TextRange{}, false
	}

	r, ok := ft.Range(start, end)
	if !ok || r.Collapsed() || r.intersectsMarker() {
		return TextRange{}, false
	}

	// flatten order is content-first, but toggle blocks render the title
	// region first in the document. A range straddling the region boundary
	// then runs backwards in document order and only covers part of the
	// snapshot; the range's own text catches that where the flat slice
	// cannot.
	if r.Text() != a.SnapshotText {
		return TextRange{}, false
	}

	return r, true
}

// searchCandidate scans the flattened text for occurrences of the snapshot
// and returns the first one that does not intersect an existing marker.
func searchCandidate(ft *FlatText, snapshot string) (TextRange, bool) {
	if snapshot == "" {
		return TextRange{}, false
	}

	text := ft.Text()
	snapshotRunes := utf8.RuneCountInString(snapshot)

	byteOffset := 0

	for {
		idx := strings.Index(text[byteOffset:], snapshot)
		if idx < 0 {
			return TextRange{}, false
		}

		byteOffset += idx

		start := utf8.RuneCountInString(text[:byteOffset])

		// occurrences straddling the flattened region boundary reconstruct a
		// range that is backwards in document order; its text comes up short
		// of the snapshot, so the equality check rejects them
		r, ok := ft.Range(start, start+snapshotRunes)
		if ok && !r.Collapsed() && !r.intersectsMarker() && r.Text() == snapshot {
			return r, true
		}

		// move past this occurrence and keep scanning
		_, width := utf8.DecodeRuneInString(text[byteOffset:])
		byteOffset += width
	}
}
