package reactions

import (
	"context"
	"fmt"
	"slices"
	"time"
)

type Service struct {
	userReactionRepo UserReactionRepository
}

func NewService(userReactionRepo UserReactionRepository) *Service {
	return &Service{userReactionRepo: userReactionRepo}
}

type ReactionOption struct {
	Emoji     string
	Count     int
	Selected  bool
	Available bool
}

type TargetReactions struct {
	TargetType TargetType
	TargetID   string
	Options    []ReactionOption
}

func (svc *Service) AllowedEmojis(
	_ context.Context,
	targetType TargetType,
	_ string,
) ([]string, error) {
	if !targetType.IsValid() {
		return nil, InvalidTargetTypeError{TargetType: targetType}
	}

	return []string{"👍", "❤️", "😂", "🎉"}, nil
}

// ToggleReaction adds the (user, emoji) pair when absent and removes it when
// present. Returns whether state actually changed, so redundant toggles can
// short-circuit re-rendering.
func (svc *Service) ToggleReaction(
	ctx context.Context,
	targetType TargetType,
	targetID string,
	userID string,
	emoji string,
) (bool, error) {
	if !targetType.IsValid() {
		return false, InvalidTargetTypeError{TargetType: targetType}
	}

	allowedEmojis, err := svc.AllowedEmojis(ctx, targetType, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to get allowed emojis: %w", err)
	}

	if !slices.Contains(allowedEmojis, emoji) {
		return false, InvalidEmojiError{
			TargetType: targetType,
			TargetID:   targetID,
			Emoji:      emoji,
			Allowed:    allowedEmojis,
		}
	}

	exists, err := svc.userReactionRepo.Exists(ctx, targetType, targetID, userID, emoji)
	if err != nil {
		return false, fmt.Errorf("failed to check existing reaction: %w", err)
	}

	if exists {
		deleted, err := svc.userReactionRepo.Delete(ctx, targetType, targetID, userID, emoji)
		if err != nil {
			return false, fmt.Errorf("failed to remove reaction: %w", err)
		}

		return deleted, nil
	}

	userReaction := &UserReaction{
		TargetType: targetType,
		TargetID:   targetID,
		UserID:     userID,
		Emoji:      emoji,
		CreatedAt:  time.Now(),
	}

	err = svc.userReactionRepo.Insert(ctx, userReaction)
	if err != nil {
		return false, fmt.Errorf("failed to add reaction: %w", err)
	}

	return true, nil
}

// RemoveTargetReactions deletes every reaction on a target; called when the
// target comment or reply is deleted.
func (svc *Service) RemoveTargetReactions(ctx context.Context, targetType TargetType, targetID string) error {
	if !targetType.IsValid() {
		return InvalidTargetTypeError{TargetType: targetType}
	}

	err := svc.userReactionRepo.DeleteByTarget(ctx, targetType, targetID)
	if err != nil {
		return fmt.Errorf("failed to delete target reactions: %w", err)
	}

	return nil
}

func (svc *Service) GetTargetReactions(
	ctx context.Context,
	targetType TargetType,
	targetID string,
	currentUserID *string,
) (*TargetReactions, error) {
	allowedEmojis, err := svc.AllowedEmojis(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get allowed emojis: %w", err)
	}

	reactions, err := svc.userReactionRepo.ListByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list target reactions: %w", err)
	}

	counts := make(map[string]int)
	selected := make(map[string]struct{})

	for _, reaction := range reactions {
		counts[reaction.Emoji]++

		if currentUserID != nil && reaction.UserID == *currentUserID {
			selected[reaction.Emoji] = struct{}{}
		}
	}

	isSelected := func(emoji string) bool {
		_, ok := selected[emoji]

		return ok
	}

	options := make([]ReactionOption, 0, len(allowedEmojis))
	availableEmojiSet := make(map[string]struct{}, len(allowedEmojis))

	for _, emoji := range allowedEmojis {
		availableEmojiSet[emoji] = struct{}{}

		options = append(options, ReactionOption{
			Emoji:     emoji,
			Count:     counts[emoji],
			Selected:  isSelected(emoji),
			Available: true,
		})
	}

	additionalEmojis := make([]string, 0)

	for emoji, count := range counts {
		if count <= 0 {
			continue
		}

		if _, ok := availableEmojiSet[emoji]; ok {
			continue
		}

		additionalEmojis = append(additionalEmojis, emoji)
	}

	slices.Sort(additionalEmojis)

	for _, emoji := range additionalEmojis {
		options = append(options, ReactionOption{
			Emoji:     emoji,
			Count:     counts[emoji],
			Selected:  isSelected(emoji),
			Available: false,
		})
	}

	return &TargetReactions{
		TargetType: targetType,
		TargetID:   targetID,
		Options:    options,
	}, nil
}
