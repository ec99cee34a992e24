package repository

import (
	"context"
	"fmt"
	"time"

	"instoo/internal/domain/user"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO users (uuid, email, nickname, profile_image_url, provider, provider_id, role, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `,
		u.UUID,
		u.Email,
		u.Nickname,
		u.ProfileImageURL,
		u.Provider,
		u.ProviderID,
		string(u.Role),
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapWriteError("create user", err)
}

// GetByUUID returns active, non-deleted users only.
func (r *userRepository) GetByUUID(ctx context.Context, id uuid.UUID) (user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, `
        SELECT uuid, email, nickname, profile_image_url, provider, provider_id, role, is_active, created_at, updated_at, deleted_at
        FROM users
        WHERE uuid = $1 AND is_active = TRUE AND deleted_at IS NULL
    `, id).Scan(
		&u.UUID,
		&u.Email,
		&u.Nickname,
		&u.ProfileImageURL,
		&u.Provider,
		&u.ProviderID,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		return user.User{}, mapReadError("get user", err)
	}
	return u, nil
}

func (r *userRepository) NicknameTaken(ctx context.Context, nickname string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM users
            WHERE nickname = $1 AND uuid <> $2 AND is_active = TRUE AND deleted_at IS NULL
        )
    `, nickname, exclude).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check nickname: %w", err)
	}
	return taken, nil
}

// UpdateNickname maps a lost race on uq_users_nickname to ErrAlreadyExists.
func (r *userRepository) UpdateNickname(ctx context.Context, id uuid.UUID, nickname string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
        UPDATE users SET nickname = $1, updated_at = $2
        WHERE uuid = $3 AND is_active = TRUE AND deleted_at IS NULL
    `, nickname, at, id)
	if err != nil {
		return mapWriteError("update nickname", err)
	}
	return expectOneRow(res, "update nickname", instoo_errors.ErrNotFound)
}
