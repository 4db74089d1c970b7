package sqlite3

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/marginalia/reactions"
)

const tableReactions = "reactions"

type UserReactionRepository struct {
	db *sql.DB
}

var _ reactions.UserReactionRepository = (*UserReactionRepository)(nil)

func NewUserReactionRepository(db *sql.DB) *UserReactionRepository {
	return &UserReactionRepository{db: db}
}

const (
	userReactionFieldTargetType = "target_type"
	userReactionFieldTargetID   = "target_id"
	userReactionFieldUserID     = "user_id"
	userReactionFieldEmoji      = "emoji"
	userReactionFieldCreatedAt  = "created_at"
)

func reactionColumns() []string {
	return []string{
		userReactionFieldTargetType,
		userReactionFieldTargetID,
		userReactionFieldUserID,
		userReactionFieldEmoji,
		userReactionFieldCreatedAt,
	}
}

func scanUserReaction(row sq.RowScanner) (*reactions.UserReaction, error) {
	var reaction reactions.UserReaction

	err := row.Scan(
		&reaction.TargetType,
		&reaction.TargetID,
		&reaction.UserID,
		&reaction.Emoji,
		&reaction.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reaction row: %w", err)
	}

	return &reaction, nil
}

func (repo *UserReactionRepository) Exists(
	ctx context.Context,
	targetType reactions.TargetType,
	targetID string,
	userID string,
	emoji string,
) (bool, error) {
	q := sq.Select("COUNT(*)").
		From(tableReactions).
		Where(sq.Eq{
			userReactionFieldTargetType: targetType,
			userReactionFieldTargetID:   targetID,
			userReactionFieldUserID:     userID,
			userReactionFieldEmoji:      emoji,
		}).
		RunWith(repo.db)

	var count int

	err := q.QueryRowContext(ctx).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count reactions: %w", err)
	}

	return count > 0, nil
}

func (repo *UserReactionRepository) Insert(ctx context.Context, reaction *reactions.UserReaction) error {
	q := sq.Insert(tableReactions).
		Columns(reactionColumns()...).
		Values(
			reaction.TargetType,
			reaction.TargetID,
			reaction.UserID,
			reaction.Emoji,
			reaction.CreatedAt,
		).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *UserReactionRepository) Delete(
	ctx context.Context,
	targetType reactions.TargetType,
	targetID string,
	userID string,
	emoji string,
) (bool, error) {
	q := sq.Delete(tableReactions).
		Where(sq.Eq{
			userReactionFieldTargetType: targetType,
			userReactionFieldTargetID:   targetID,
			userReactionFieldUserID:     userID,
			userReactionFieldEmoji:      emoji,
		}).
		RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to exec delete: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (repo *UserReactionRepository) ListByTarget(
	ctx context.Context,
	targetType reactions.TargetType,
	targetID string,
) ([]*reactions.UserReaction, error) {
	q := sq.Select(reactionColumns()...).
		From(tableReactions).
		Where(sq.Eq{
			userReactionFieldTargetType: targetType,
			userReactionFieldTargetID:   targetID,
		}).
		OrderBy(userReactionFieldCreatedAt + " ASC").
		RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query reactions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close reaction rows", "error", err)
		}
	}()

	result := make([]*reactions.UserReaction, 0)

	for rows.Next() {
		reaction, err := scanUserReaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reaction: %w", err)
		}

		result = append(result, reaction)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate reaction rows: %w", err)
	}

	return result, nil
}

func (repo *UserReactionRepository) DeleteByTarget(
	ctx context.Context,
	targetType reactions.TargetType,
	targetID string,
) error {
	q := sq.Delete(tableReactions).
		Where(sq.Eq{
			userReactionFieldTargetType: targetType,
			userReactionFieldTargetID:   targetID,
		}).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec delete: %w", err)
	}

	return nil
}
