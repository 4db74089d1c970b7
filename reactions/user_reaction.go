package reactions

import (
	"context"
	"fmt"
	"time"
)

type TargetType string

const (
	TargetTypeComment TargetType = "comment"
	TargetTypeReply   TargetType = "reply"
)

func (targetType TargetType) IsValid() bool {
	switch targetType {
	case TargetTypeComment, TargetTypeReply:
		return true
	default:
		return false
	}
}

// UserReaction is one (user, emoji) pair on a target. A user can react with
// several different emojis on the same target; the same emoji at most once.
type UserReaction struct {
	TargetType TargetType
	TargetID   string
	UserID     string
	Emoji      string
	CreatedAt  time.Time
}

type UserReactionRepository interface {
	Exists(
		ctx context.Context,
		targetType TargetType,
		targetID string,
		userID string,
		emoji string,
	) (exists bool, err error)
	Insert(ctx context.Context, reaction *UserReaction) (err error)
	Delete(
		ctx context.Context,
		targetType TargetType,
		targetID string,
		userID string,
		emoji string,
	) (deleted bool, err error)
	ListByTarget(ctx context.Context, targetType TargetType, targetID string) (reactions []*UserReaction, err error)
	DeleteByTarget(ctx context.Context, targetType TargetType, targetID string) (err error)
}

type InvalidTargetTypeError struct {
	TargetType TargetType
}

func (err InvalidTargetTypeError) Error() string {
	return fmt.Sprintf("invalid target type: %q", err.TargetType)
}

type InvalidEmojiError struct {
	TargetType TargetType
	TargetID   string
	Emoji      string
	Allowed    []string
}

func (err InvalidEmojiError) Error() string {
	return fmt.Sprintf(
		"emoji %q is not allowed for %s:%q; allowed: %v",
		err.Emoji,
		err.TargetType,
		err.TargetID,
		err.Allowed,
	)
}
