package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"instoo/internal/domain"
	"instoo/internal/domain/streamer"
	"instoo/internal/domain/user"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
)

// SeedResult holds what the development seed created or found.
type SeedResult struct {
	AdminUser user.User
	TestUsers []user.User
	Streamers []streamer.Streamer
}

// Fixed ids keep the development seed idempotent across runs.
var (
	seedAdminID = uuid.MustParse("00000000-0000-4000-8000-000000000001")
	seedUserIDs = []uuid.UUID{
		uuid.MustParse("00000000-0000-4000-8000-000000000002"),
		uuid.MustParse("00000000-0000-4000-8000-000000000003"),
	}
	seedStreamerIDs = []uuid.UUID{
		uuid.MustParse("00000000-0000-4000-8000-0000000000a1"),
		uuid.MustParse("00000000-0000-4000-8000-0000000000a2"),
		uuid.MustParse("00000000-0000-4000-8000-0000000000a3"),
	}
)

// SeedDevelopment creates an admin, two regular users and three streamers
// (two verified) unless they already exist.
func SeedDevelopment(ctx context.Context) (*SeedResult, error) {
	store := repository.NewStore(DB)
	result := &SeedResult{}
	now := time.Now().UTC()

	log.Println("Starting database seeding...")
	err := store.WithinTx(ctx, func(tx repository.Store) error {
		admin, err := seedUser(ctx, tx, seedAdminID, "admin@instoo.dev", "admin", domain.RoleAdmin, now)
		if err != nil {
			return err
		}
		result.AdminUser = admin

		for i, id := range seedUserIDs {
			u, err := seedUser(ctx, tx, id, fmt.Sprintf("viewer%d@instoo.dev", i+1), fmt.Sprintf("viewer%d", i+1), domain.RoleUser, now)
			if err != nil {
				return err
			}
			result.TestUsers = append(result.TestUsers, u)
		}

		names := []string{"Hanul", "Mori", "Pebble"}
		for i, id := range seedStreamerIDs {
			s, err := seedStreamer(ctx, tx, id, names[i], i < 2, admin.UUID, now)
			if err != nil {
				return err
			}
			result.Streamers = append(result.Streamers, s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func seedUser(ctx context.Context, tx repository.Store, id uuid.UUID, email, nickname string, role domain.Role, now time.Time) (user.User, error) {
	existing, err := tx.Users().GetByUUID(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, instoo_errors.ErrNotFound) {
		return user.User{}, err
	}
	u := user.User{
		UUID:        id,
		Email:       email,
		Nickname:    nickname,
		Provider:    "local",
		ProviderID:  sql.NullString{},
		Role:        role,
		IsActive:    true,
		AuditFields: domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}
	if err := tx.Users().Create(ctx, &u); err != nil {
		return user.User{}, fmt.Errorf("seed user %s: %w", email, err)
	}
	return u, nil
}

func seedStreamer(ctx context.Context, tx repository.Store, id uuid.UUID, name string, verified bool, admin uuid.UUID, now time.Time) (streamer.Streamer, error) {
	existing, err := tx.Streamers().GetByUUID(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, instoo_errors.ErrNotFound) {
		return streamer.Streamer{}, err
	}
	s := streamer.Streamer{
		UUID:       id,
		Name:       name,
		IsVerified: verified,
		IsActive:   true,
		Platforms: []streamer.Platform{
			{PlatformName: "chzzk", ChannelURL: "https://chzzk.naver.com/" + name},
		},
		CreatedBy:   admin,
		UpdatedBy:   admin,
		AuditFields: domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}
	if err := tx.Streamers().Create(ctx, &s); err != nil {
		return streamer.Streamer{}, fmt.Errorf("seed streamer %s: %w", name, err)
	}
	return s, nil
}
