package anchor_test

import (
	"testing"

	"github.com/nasermirzaei89/marginalia/anchor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustParseBlock(t *testing.T, fragment string) *html.Node {
	t.Helper()

	block, err := anchor.ParseBlockHTML(fragment)
	require.NoError(t, err)

	return block
}

func mustFlatten(t *testing.T, block *html.Node) *anchor.FlatText {
	t.Helper()

	ft, ok := anchor.Flatten(block)
	require.True(t, ok)

	return ft
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		fragment string
		expected string
	}{
		{
			name:     "single text node",
			fragment: `<div data-block-id="b1"><p data-region="content">The quick brown fox</p></div>`,
			expected: "The quick brown fox",
		},
		{
			name:     "inline formatting splits text nodes",
			fragment: `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown <i>fox</i></p></div>`,
			expected: "The quick brown fox",
		},
		{
			name:     "title region counts after content",
			fragment: `<div data-block-id="b1"><div data-region="content">body text</div><span data-region="title">Heading</span></div>`,
			expected: "body textHeading",
		},
		{
			name:     "marker text still counts",
			fragment: `<div data-block-id="b1"><p data-region="content">The <mark data-comment-id="c1">quick</mark> brown fox</p></div>`,
			expected: "The quick brown fox",
		},
		{
			name:     "non-ascii text",
			fragment: `<div data-block-id="b1"><p data-region="content">héllo wörld</p></div>`,
			expected: "héllo wörld",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			block := mustParseBlock(t, tt.fragment)
			ft := mustFlatten(t, block)

			assert.Equal(t, tt.expected, ft.Text())
			assert.Equal(t, len([]rune(tt.expected)), ft.Len())
		})
	}
}

func TestFlattenNoRegions(t *testing.T) {
	t.Parallel()

	block := mustParseBlock(t, `<div data-block-id="b1"><p>plain paragraph</p></div>`)

	_, ok := anchor.Flatten(block)
	assert.False(t, ok)
}

func TestFlatTextSlice(t *testing.T) {
	t.Parallel()

	block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown fox</p></div>`)
	ft := mustFlatten(t, block)

	assert.Equal(t, "quick", ft.Slice(4, 9))
	assert.Equal(t, "The quick brown fox", ft.Slice(0, ft.Len()))
	assert.Equal(t, "", ft.Slice(9, 4))
	assert.Equal(t, "fox", ft.Slice(16, 100))
}

func TestFlatTextRangeRoundTrip(t *testing.T) {
	t.Parallel()

	block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown fox</p></div>`)
	ft := mustFlatten(t, block)

	// every valid [i, j) pair must reproduce its own slice
	for i := range ft.Len() {
		for j := i + 1; j <= ft.Len(); j++ {
			r, ok := ft.Range(i, j)
			require.True(t, ok)

			assert.Equal(t, ft.Slice(i, j), r.Text(), "range [%d, %d)", i, j)
		}
	}
}

func TestFlatTextBoundaryPoints(t *testing.T) {
	t.Parallel()

	// "The |quick| brown fox" with "quick" in its own text node: offset 4 is
	// both the end of "The " and the start of "quick".
	block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown fox</p></div>`)
	ft := mustFlatten(t, block)

	startPoint, ok := ft.StartPoint(4)
	require.True(t, ok)
	assert.Equal(t, "quick", startPoint.Node.Data)
	assert.Equal(t, 0, startPoint.Offset)

	endPoint, ok := ft.EndPoint(4)
	require.True(t, ok)
	assert.Equal(t, "The ", endPoint.Node.Data)
	assert.Equal(t, 4, endPoint.Offset)
}

func TestFlatTextOffsetOf(t *testing.T) {
	t.Parallel()

	block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown fox</p></div>`)
	ft := mustFlatten(t, block)

	point, ok := ft.StartPoint(6)
	require.True(t, ok)

	offset, found := ft.OffsetOf(point.Node, point.Offset)
	require.True(t, found)
	assert.Equal(t, 6, offset)

	outside := &html.Node{Type: html.TextNode, Data: "elsewhere"}

	_, found = ft.OffsetOf(outside, 0)
	assert.False(t, found)
}
