package discuss_test

import (
	"testing"
	"time"

	"github.com/nasermirzaei89/marginalia/discuss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildThreads(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	comments := []*discuss.Comment{
		{ID: "c2", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "c1", CreatedAt: base},
	}

	parentReply := "r1"

	replies := []*discuss.Reply{
		{ID: "r3", CommentID: "c1", CreatedAt: base.Add(3 * time.Hour), ReplyTo: &parentReply},
		{ID: "r1", CommentID: "c1", CreatedAt: base.Add(time.Hour)},
		{ID: "r2", CommentID: "c2", CreatedAt: base.Add(2 * time.Hour)},
		{ID: "orphan", CommentID: "missing", CreatedAt: base},
	}

	threads := discuss.BuildThreads(comments, replies)

	require.Len(t, threads, 2)

	assert.Equal(t, "c1", threads[0].Comment.ID)
	assert.Equal(t, "c2", threads[1].Comment.ID)

	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, "r1", threads[0].Replies[0].ID)
	assert.Equal(t, "r3", threads[0].Replies[1].ID)

	// reply-to-reply stays a flat sibling carrying its parent reference
	require.NotNil(t, threads[0].Replies[1].ReplyTo)
	assert.Equal(t, "r1", *threads[0].Replies[1].ReplyTo)

	require.Len(t, threads[1].Replies, 1)
	assert.Equal(t, "r2", threads[1].Replies[0].ID)
}

func TestBuildThreadsEmpty(t *testing.T) {
	t.Parallel()

	threads := discuss.BuildThreads(nil, nil)
	assert.Empty(t, threads)
}

func TestCommentAnchored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		comment  discuss.Comment
		expected bool
	}{
		{
			name:     "block and snapshot present",
			comment:  discuss.Comment{BlockID: "b1", SnapshotText: "quick"},
			expected: true,
		},
		{
			name:     "no block id",
			comment:  discuss.Comment{SnapshotText: "quick"},
			expected: false,
		},
		{
			name:     "no snapshot",
			comment:  discuss.Comment{BlockID: "b1"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, tt.comment.Anchored())
		})
	}
}
