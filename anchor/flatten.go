package anchor

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// FlatText is the flattened text of a block's editable regions: one indexed
// buffer with a position map back to (text node, intra-node offset). Offsets
// are counted in runes, continuously across region boundaries. Highlight
// markers do not affect the flattened text, only the DOM shape, so offsets
// computed before and after wrapping agree.
//
// A FlatText is a snapshot; it is invalidated by any mutation of the block
// (wrapping, unwrapping, normalization) and must be rebuilt afterwards.
type FlatText struct {
	text     string
	segments []segment
}

type segment struct {
	node   *html.Node
	start  int // rune offset of the node's first rune in the flattened text
	length int // rune count of the node's text
}

// Flatten walks all text nodes of the block's editable regions in document
// order and builds the flattened text buffer. Returns false when the block
// exposes no editable regions.
func Flatten(block *html.Node) (*FlatText, bool) {
	regions := editableRegions(block)
	if len(regions) == 0 {
		return nil, false
	}

	ft := &FlatText{}

	var sb strings.Builder

	offset := 0

	var walk func(n *html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			length := utf8.RuneCountInString(n.Data)
			if length > 0 {
				ft.segments = append(ft.segments, segment{node: n, start: offset, length: length})
				sb.WriteString(n.Data)
				offset += length
			}

			return
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	for _, region := range regions {
		walk(region)
	}

	ft.text = sb.String()

	return ft, true
}

// Text returns the full flattened text.
func (ft *FlatText) Text() string {
	return ft.text
}

// Len returns the flattened text length in runes.
func (ft *FlatText) Len() int {
	if len(ft.segments) == 0 {
		return 0
	}

	last := ft.segments[len(ft.segments)-1]

	return last.start + last.length
}

// Slice returns the flattened text between rune offsets [start, end).
// Out-of-range offsets are clamped.
func (ft *FlatText) Slice(start, end int) string {
	runes := []rune(ft.text)

	start = max(start, 0)
	end = min(end, len(runes))

	if start >= end {
		return ""
	}

	return string(runes[start:end])
}

// OffsetOf maps a (text node, intra-node rune offset) point to its absolute
// flattened offset. Returns false when the node is not part of any editable
// region; callers treat that as "offset unknown", not a hard failure.
func (ft *FlatText) OffsetOf(node *html.Node, offset int) (int, bool) {
	for _, seg := range ft.segments {
		if seg.node == node {
			if offset < 0 {
				offset = 0
			}

			if offset > seg.length {
				offset = seg.length
			}

			return seg.start + offset, true
		}
	}

	return 0, false
}

// StartPoint maps an absolute flattened offset to a boundary point suitable
// as a range start. At segment boundaries it lands at the beginning of the
// following segment.
func (ft *FlatText) StartPoint(offset int) (Point, bool) {
	if len(ft.segments) == 0 || offset < 0 || offset > ft.Len() {
		return Point{}, false
	}

	for _, seg := range ft.segments {
		if offset < seg.start+seg.length {
			if offset < seg.start {
				offset = seg.start
			}

			return Point{Node: seg.node, Offset: offset - seg.start}, true
		}
	}

	last := ft.segments[len(ft.segments)-1]

	return Point{Node: last.node, Offset: last.length}, true
}

// EndPoint maps an absolute flattened offset to a boundary point suitable as
// a range end. At segment boundaries it lands at the end of the preceding
// segment, so a [start, end) pair never covers an empty leading node.
func (ft *FlatText) EndPoint(offset int) (Point, bool) {
	if len(ft.segments) == 0 || offset < 0 || offset > ft.Len() {
		return Point{}, false
	}

	for i := len(ft.segments) - 1; i >= 0; i-- {
		seg := ft.segments[i]
		if offset > seg.start {
			if offset > seg.start+seg.length {
				offset = seg.start + seg.length
			}

			return Point{Node: seg.node, Offset: offset - seg.start}, true
		}
	}

	first := ft.segments[0]

	return Point{Node: first.node, Offset: 0}, true
}

// Range builds a text range covering the flattened offsets [start, end).
func (ft *FlatText) Range(start, end int) (TextRange, bool) {
	startPoint, ok := ft.StartPoint(start)
	if !ok {
		return TextRange{}, false
	}

	endPoint, ok := ft.EndPoint(end)
	if !ok {
		return TextRange{}, false
	}

	return TextRange{Start: startPoint, End: endPoint}, true
}
