package anchor

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseBlockHTML parses a stored block fragment and returns its root element,
// the first element carrying a data-block-id attribute.
func ParseBlockHTML(fragment string) (*html.Node, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse block fragment: %w", err)
	}

	for _, n := range nodes {
		if block := findBlockElement(n); block != nil {
			return block, nil
		}
	}

	return nil, BlockElementNotFoundError{}
}

// RenderBlockHTML serializes a block element back to its stored form.
func RenderBlockHTML(block *html.Node) (string, error) {
	var sb strings.Builder

	err := html.Render(&sb, block)
	if err != nil {
		return "", fmt.Errorf("failed to render block fragment: %w", err)
	}

	return sb.String(), nil
}

func findBlockElement(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && getAttr(n, AttrBlockID) != "" {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if block := findBlockElement(child); block != nil {
			return block
		}
	}

	return nil
}

// BlockID returns the block id of the nearest ancestor block element of n,
// including n itself. Empty when n is not inside a block.
func BlockID(n *html.Node) string {
	if block := blockElementOf(n); block != nil {
		return getAttr(block, AttrBlockID)
	}

	return ""
}

// blockElementOf walks up from n to the nearest ancestor tagged as a
// structural block, including n itself.
func blockElementOf(n *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && getAttr(cur, AttrBlockID) != "" {
			return cur
		}
	}

	return nil
}

// editableRegions enumerates the block's editable text regions in flattening
// order: content regions in document order, then title regions. Regions are
// assumed disjoint subtrees.
func editableRegions(block *html.Node) []*html.Node {
	var content, title []*html.Node

	var walk func(n *html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch getAttr(n, AttrRegion) {
			case RegionContent:
				content = append(content, n)
			case RegionTitle:
				title = append(title, n)
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	walk(block)

	return append(content, title...)
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}

	return ""
}

// isMarker reports whether n is a highlight marker element.
func isMarker(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && n.DataAtom == atom.Mark && getAttr(n, AttrCommentID) != ""
}

// markerAncestor returns the enclosing highlight marker of n, if any.
func markerAncestor(n *html.Node) *html.Node {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if isMarker(cur) {
			return cur
		}
	}

	return nil
}
