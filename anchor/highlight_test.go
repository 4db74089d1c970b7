package anchor_test

import (
	"testing"

	"github.com/nasermirzaei89/marginalia/anchor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustRender(t *testing.T, block *html.Node) string {
	t.Helper()

	rendered, err := anchor.RenderBlockHTML(block)
	require.NoError(t, err)

	return rendered
}

func wrapOffsets(t *testing.T, block *html.Node, start, end int, ownerID string) {
	t.Helper()

	ft := mustFlatten(t, block)

	r, ok := ft.Range(start, end)
	require.True(t, ok)

	anchor.Wrap(r, ownerID)
}

func TestWrap(t *testing.T) {
	t.Parallel()

	t.Run("splits boundary text nodes", func(t *testing.T) {
		t.Parallel()

		block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The quick brown fox</p></div>`)

		wrapOffsets(t, block, 4, 9, "c1")

		assert.Equal(t, "quick", anchor.MarkerText(block, "c1"))
		assert.Equal(t,
			`<div data-block-id="b1"><p data-region="content">The <mark data-comment-id="c1">quick</mark> brown fox</p></div>`,
			mustRender(t, block),
		)
	})

	t.Run("spanning inline formatting yields sibling markers", func(t *testing.T) {
		t.Parallel()

		block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown fox</p></div>`)

		// "e quick br" crosses into and out of the <b> element
		wrapOffsets(t, block, 2, 12, "c1")

		markers := anchor.FindMarkers(block, "c1")
		assert.Len(t, markers, 3)
		assert.Equal(t, "e quick br", anchor.MarkerText(block, "c1"))
	})

	t.Run("collapsed range is a no-op", func(t *testing.T) {
		t.Parallel()

		block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The quick brown fox</p></div>`)
		before := mustRender(t, block)

		wrapOffsets(t, block, 5, 5, "c1")

		assert.Equal(t, before, mustRender(t, block))
		assert.Empty(t, anchor.FindMarkers(block, "c1"))
	})

	t.Run("wrap preserves flattened text", func(t *testing.T) {
		t.Parallel()

		block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown fox</p></div>`)
		before := mustFlatten(t, block).Text()

		wrapOffsets(t, block, 2, 12, "c1")

		assert.Equal(t, before, mustFlatten(t, block).Text())
	})
}

func TestUnwrap(t *testing.T) {
	t.Parallel()

	t.Run("wrap then unwrap restores text exactly", func(t *testing.T) {
		t.Parallel()

		block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The <b>quick</b> brown fox</p></div>`)
		before := mustRender(t, block)

		wrapOffsets(t, block, 2, 12, "c1")

		removed := anchor.Unwrap(block, "c1")
		assert.Equal(t, 3, removed)
		assert.Equal(t, before, mustRender(t, block))
	})

	t.Run("no markers is a no-op", func(t *testing.T) {
		t.Parallel()

		block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The quick brown fox</p></div>`)

		assert.Equal(t, 0, anchor.Unwrap(block, "missing"))
	})

	t.Run("leaves other owners in place", func(t *testing.T) {
		t.Parallel()

		block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The quick brown fox</p></div>`)

		wrapOffsets(t, block, 4, 9, "c1")
		wrapOffsets(t, block, 10, 15, "c2")

		anchor.Unwrap(block, "c1")

		assert.Empty(t, anchor.FindMarkers(block, "c1"))
		assert.Equal(t, "brown", anchor.MarkerText(block, "c2"))
	})
}

func TestUnwrapAll(t *testing.T) {
	t.Parallel()

	block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The quick brown fox</p></div>`)
	before := mustRender(t, block)

	wrapOffsets(t, block, 4, 9, "c1")
	wrapOffsets(t, block, 10, 15, "c2")

	removed := anchor.UnwrapAll(block)

	assert.Equal(t, 2, removed)
	assert.Equal(t, before, mustRender(t, block))
}

func TestUnwrapRange(t *testing.T) {
	t.Parallel()

	block := mustParseBlock(t, `<div data-block-id="b1"><p data-region="content">The quick brown fox</p></div>`)

	wrapOffsets(t, block, 4, 9, "c1")

	// a range overlapping part of the existing highlight clears it
	ft := mustFlatten(t, block)
	r, ok := ft.Range(6, 15)
	require.True(t, ok)

	removed := anchor.UnwrapRange(r)

	assert.Equal(t, 1, removed)
	assert.Empty(t, anchor.FindMarkers(block, "c1"))
	assert.Equal(t, "The quick brown fox", mustFlatten(t, block).Text())
}
