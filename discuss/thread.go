package discuss

import (
	"slices"
	"sort"
)

// Thread is the projection of one comment and its replies the panel
// templates render. Replies are ordered by ascending timestamp; nested
// reply-to-reply stays flat, annotated with the parent reply id.
type Thread struct {
	Comment *Comment
	Replies []*Reply
}

// BuildThreads groups replies under their comments and orders everything
// for rendering: comments by creation time, replies ascending within each
// thread. Replies whose parent comment is missing are dropped.
func BuildThreads(comments []*Comment, replies []*Reply) []*Thread {
	byComment := make(map[string][]*Reply)

	for _, reply := range replies {
		byComment[reply.CommentID] = append(byComment[reply.CommentID], reply)
	}

	threads := make([]*Thread, 0, len(comments))

	for _, comment := range comments {
		thread := &Thread{
			Comment: comment,
			Replies: byComment[comment.ID],
		}

		sort.SliceStable(thread.Replies, func(i, j int) bool {
			return thread.Replies[i].CreatedAt.Before(thread.Replies[j].CreatedAt)
		})

		threads = append(threads, thread)
	}

	slices.SortStableFunc(threads, func(a, b *Thread) int {
		return a.Comment.CreatedAt.Compare(b.Comment.CreatedAt)
	})

	return threads
}
