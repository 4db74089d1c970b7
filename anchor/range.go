package anchor

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Point is a boundary point inside a block: a text node plus a rune offset
// into that node's text. The selection model only ever anchors boundaries to
// text nodes, mirroring how the editor reports selections.
type Point struct {
	Node   *html.Node
	Offset int
}

// TextRange is a static, non-live pair of boundary points. It does not track
// DOM mutations; callers re-derive ranges after any wrap or unwrap.
type TextRange struct {
	Start Point
	End   Point
}

// Collapsed reports whether the range covers no text.
func (r TextRange) Collapsed() bool {
	return r.Start.Node == nil || r.End.Node == nil ||
		(r.Start.Node == r.End.Node && r.Start.Offset >= r.End.Offset)
}

// Text extracts the text covered by the range by walking text nodes in
// document order from the start node to the end node.
func (r TextRange) Text() string {
	if r.Collapsed() {
		return ""
	}

	var sb strings.Builder

	for _, part := range r.coveredParts() {
		sb.WriteString(part.text)
	}

	return sb.String()
}

type coveredPart struct {
	node  *html.Node
	text  string
	start int // rune offset of covered text within the node
	end   int
}

// coveredParts lists the text nodes the range touches with a non-empty
// covered portion, in document order. Boundary nodes touched with zero
// coverage are excluded, so overlap checks never flag adjacency as overlap.
func (r TextRange) coveredParts() []coveredPart {
	if r.Collapsed() {
		return nil
	}

	var parts []coveredPart

	node := r.Start.Node

	for node != nil {
		if node.Type == html.TextNode {
			runes := []rune(node.Data)

			start := 0
			if node == r.Start.Node {
				start = clamp(r.Start.Offset, 0, len(runes))
			}

			end := len(runes)
			if node == r.End.Node {
				end = clamp(r.End.Offset, 0, len(runes))
			}

			if start < end {
				parts = append(parts, coveredPart{
					node:  node,
					text:  string(runes[start:end]),
					start: start,
					end:   end,
				})
			}
		}

		if node == r.End.Node {
			break
		}

		node = nextInDocument(node)
	}

	return parts
}

// intersectsMarker reports whether any covered text sits inside an existing
// highlight marker.
func (r TextRange) intersectsMarker() bool {
	for _, part := range r.coveredParts() {
		if markerAncestor(part.node) != nil {
			return true
		}
	}

	return false
}

// nextInDocument is the standard tree successor: first child, else next
// sibling, else the next sibling of the nearest ancestor that has one.
func nextInDocument(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}

	for cur := n; cur != nil; cur = cur.Parent {
		if cur.NextSibling != nil {
			return cur.NextSibling
		}
	}

	return nil
}

func nodeRuneLen(n *html.Node) int {
	return utf8.RuneCountInString(n.Data)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
