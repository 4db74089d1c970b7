package anchor

import (
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Wrap inserts highlight markers covering the range, tagged with ownerID.
// Boundary text nodes are split so marker edges align exactly with node
// boundaries; a range spanning multiple text nodes becomes multiple sibling
// markers sharing the same owner id, never one marker around mixed content.
// Collapsed ranges are a no-op. Nodes already inside a marker are skipped,
// since markers never nest; callers clear stale markers with UnwrapRange
// before wrapping.
func Wrap(r TextRange, ownerID string) {
	if r.Collapsed() || ownerID == "" {
		return
	}

	parents := make(map[*html.Node]struct{})

	for _, part := range r.coveredParts() {
		node := part.node

		if node.Parent == nil {
			slog.Warn("skipped wrapping detached text node", "ownerId", ownerID)

			continue
		}

		if marker := markerAncestor(node); marker != nil {
			if getAttr(marker, AttrCommentID) != ownerID {
				slog.Warn("skipped wrapping text inside foreign marker",
					"ownerId", ownerID,
					"existingOwnerId", getAttr(marker, AttrCommentID),
				)
			}

			continue
		}

		start, end := part.start, part.end

		if start > 0 {
			node = splitTextNode(node, start)
			end -= start
		}

		if end < nodeRuneLen(node) {
			splitTextNode(node, end)
		}

		parents[node.Parent] = struct{}{}

		wrapTextNode(node, ownerID)
	}

	for parent := range parents {
		normalizeChildren(parent)
	}
}

// Unwrap removes every marker tagged with ownerID under root, replacing each
// with its text children in place, then merges adjacent text nodes. Returns
// the number of markers removed; zero markers is a no-op, not an error.
func Unwrap(root *html.Node, ownerID string) int {
	return unwrapMatching(root, func(marker *html.Node) bool {
		return getAttr(marker, AttrCommentID) == ownerID
	})
}

// UnwrapAll removes every highlight marker under root regardless of owner.
func UnwrapAll(root *html.Node) int {
	return unwrapMatching(root, func(*html.Node) bool { return true })
}

// UnwrapRange removes any marker intersecting the range, regardless of
// owner. It deliberately skips normalization so the range's node references
// stay valid for an immediately following Wrap.
func UnwrapRange(r TextRange) int {
	seen := make(map[*html.Node]struct{})

	removed := 0

	for _, part := range r.coveredParts() {
		marker := markerAncestor(part.node)
		if marker == nil {
			continue
		}

		if _, ok := seen[marker]; ok {
			continue
		}

		seen[marker] = struct{}{}

		if unwrapMarkerNode(marker) {
			removed++
		}
	}

	return removed
}

// FindMarkers lists the markers tagged with ownerID under root in document
// order.
func FindMarkers(root *html.Node, ownerID string) []*html.Node {
	var markers []*html.Node

	var walk func(n *html.Node)

	walk = func(n *html.Node) {
		if isMarker(n) && getAttr(n, AttrCommentID) == ownerID {
			markers = append(markers, n)
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	walk(root)

	return markers
}

// MarkerText concatenates the text content of every marker owned by ownerID
// under root, in document order.
func MarkerText(root *html.Node, ownerID string) string {
	text := ""

	for _, marker := range FindMarkers(root, ownerID) {
		for child := marker.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				text += child.Data
			}
		}
	}

	return text
}

func unwrapMatching(root *html.Node, match func(*html.Node) bool) int {
	var markers []*html.Node

	var walk func(n *html.Node)

	walk = func(n *html.Node) {
		if isMarker(n) && match(n) {
			markers = append(markers, n)

			return // markers never nest
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	walk(root)

	parents := make(map[*html.Node]struct{})

	removed := 0

	for _, marker := range markers {
		if marker.Parent != nil {
			parents[marker.Parent] = struct{}{}
		}

		if unwrapMarkerNode(marker) {
			removed++
		}
	}

	for parent := range parents {
		normalizeChildren(parent)
	}

	return removed
}

// unwrapMarkerNode replaces a marker with its children in place, preserving
// surrounding text. Best effort: a detached marker is logged and skipped.
func unwrapMarkerNode(marker *html.Node) bool {
	parent := marker.Parent
	if parent == nil {
		slog.Warn("skipped unwrapping detached marker", "ownerId", getAttr(marker, AttrCommentID))

		return false
	}

	for marker.FirstChild != nil {
		child := marker.FirstChild
		marker.RemoveChild(child)
		parent.InsertBefore(child, marker)
	}

	parent.RemoveChild(marker)

	return true
}

func wrapTextNode(node *html.Node, ownerID string) {
	parent := node.Parent

	marker := &html.Node{
		Type:     html.ElementNode,
		Data:     "mark",
		DataAtom: atom.Mark,
		Attr:     []html.Attribute{{Key: AttrCommentID, Val: ownerID}},
	}

	parent.InsertBefore(marker, node)
	parent.RemoveChild(node)
	marker.AppendChild(node)
}

// splitTextNode splits a text node at the given rune offset and returns the
// new node holding the tail. The original keeps the head.
func splitTextNode(node *html.Node, offset int) *html.Node {
	runes := []rune(node.Data)
	offset = clamp(offset, 0, len(runes))

	tail := &html.Node{
		Type: html.TextNode,
		Data: string(runes[offset:]),
	}

	node.Data = string(runes[:offset])

	if node.NextSibling != nil {
		node.Parent.InsertBefore(tail, node.NextSibling)
	} else {
		node.Parent.AppendChild(tail)
	}

	return tail
}

// normalizeChildren merges adjacent text node children and drops empty text
// nodes, undoing the fragmentation left behind by splits and unwraps.
func normalizeChildren(parent *html.Node) {
	child := parent.FirstChild

	for child != nil {
		next := child.NextSibling

		if child.Type == html.TextNode {
			if child.Data == "" {
				parent.RemoveChild(child)
				child = next

				continue
			}

			if next != nil && next.Type == html.TextNode {
				child.Data += next.Data
				parent.RemoveChild(next)

				continue // retry the same child against its new neighbor
			}
		}

		child = next
	}
}
