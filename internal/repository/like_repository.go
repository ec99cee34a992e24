package repository

import (
	"context"
	"fmt"

	"instoo/internal/domain/schedule"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

type likeRepository struct {
	db DBTX
}

func NewLikeRepository(db DBTX) LikeRepository {
	return &likeRepository{db: db}
}

// Create relies on the (user_uuid, schedule_uuid) primary key to reject duplicates.
func (r *likeRepository) Create(ctx context.Context, like *schedule.Like) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO schedule_likes (user_uuid, schedule_uuid, created_at)
        VALUES ($1,$2,$3)
    `, like.UserUUID, like.ScheduleUUID, like.CreatedAt)
	return mapWriteError("create like", err)
}

func (r *likeRepository) Delete(ctx context.Context, userID, scheduleID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM schedule_likes
        WHERE user_uuid = $1 AND schedule_uuid = $2
    `, userID, scheduleID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return expectOneRow(res, "delete like", instoo_errors.ErrNotFound)
}

func (r *likeRepository) Exists(ctx context.Context, userID, scheduleID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (SELECT 1 FROM schedule_likes WHERE user_uuid = $1 AND schedule_uuid = $2)
    `, userID, scheduleID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return exists, nil
}
