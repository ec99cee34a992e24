package repository

import (
	"context"
	"fmt"
	"time"

	"instoo/internal/domain/streamer"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

type followRepository struct {
	db DBTX
}

func NewFollowRepository(db DBTX) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Create(ctx context.Context, f *streamer.Follow) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO streamer_follows (user_uuid, streamer_uuid, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5)
    `, f.UserUUID, f.StreamerUUID, f.IsActive, f.CreatedAt, f.UpdatedAt)
	return mapWriteError("create follow", err)
}

func (r *followRepository) Delete(ctx context.Context, userID, streamerID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
        DELETE FROM streamer_follows
        WHERE user_uuid = $1 AND streamer_uuid = $2
    `, userID, streamerID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return expectOneRow(res, "delete follow", instoo_errors.ErrNotFound)
}

func (r *followRepository) Get(ctx context.Context, userID, streamerID uuid.UUID) (streamer.Follow, error) {
	var f streamer.Follow
	err := r.db.QueryRowContext(ctx, `
        SELECT user_uuid, streamer_uuid, is_active, created_at, updated_at
        FROM streamer_follows
        WHERE user_uuid = $1 AND streamer_uuid = $2
    `, userID, streamerID).Scan(&f.UserUUID, &f.StreamerUUID, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return streamer.Follow{}, mapReadError("get follow", err)
	}
	return f, nil
}

func (r *followRepository) SetActive(ctx context.Context, userID, streamerID uuid.UUID, active bool, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
        UPDATE streamer_follows
        SET is_active = $1, updated_at = $2
        WHERE user_uuid = $3 AND streamer_uuid = $4
    `, active, at, userID, streamerID)
	if err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle follow: %w", err)
	}
	return n > 0, nil
}

func (r *followRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]streamer.FollowView, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT f.user_uuid, f.streamer_uuid, f.is_active, f.created_at, f.updated_at,
               s.name, COALESCE(s.profile_image_url, ''), s.is_verified
        FROM streamer_follows f
        JOIN streamers s ON s.uuid = f.streamer_uuid
        WHERE f.user_uuid = $1 AND s.deleted_at IS NULL
        ORDER BY f.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("list follows: %w", err)
	}
	defer rows.Close()

	var items []streamer.FollowView
	for rows.Next() {
		var v streamer.FollowView
		if err := rows.Scan(
			&v.UserUUID,
			&v.StreamerUUID,
			&v.IsActive,
			&v.CreatedAt,
			&v.UpdatedAt,
			&v.Streamer.Name,
			&v.Streamer.ProfileImageURL,
			&v.Streamer.IsVerified,
		); err != nil {
			return nil, err
		}
		v.Streamer.UUID = v.StreamerUUID
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *followRepository) AppendHistory(ctx context.Context, h *streamer.FollowHistory) error {
	err := r.db.QueryRowContext(ctx, `
        INSERT INTO streamer_follow_histories (user_uuid, streamer_uuid, action, created_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id
    `, h.UserUUID, h.StreamerUUID, string(h.Action), h.CreatedAt).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("append follow history: %w", err)
	}
	return nil
}

func (r *followRepository) ListHistoryByUser(ctx context.Context, userID uuid.UUID, limit int) ([]streamer.FollowHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
        SELECT id, user_uuid, streamer_uuid, action, created_at
        FROM streamer_follow_histories
        WHERE user_uuid = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2
    `, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list follow history: %w", err)
	}
	defer rows.Close()

	var items []streamer.FollowHistory
	for rows.Next() {
		var h streamer.FollowHistory
		if err := rows.Scan(&h.ID, &h.UserUUID, &h.StreamerUUID, &h.Action, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
