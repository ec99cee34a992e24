package services

import (
	"context"
	"errors"

	"instoo/internal/clock"
	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/user"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"
	"instoo/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService serves profile reads and the caller's own profile edits.
type UserService struct {
	store  repository.Store
	clock  clock.Clock
	logger *logger.Logger
}

func NewUserService(store repository.Store, clk clock.Clock) *UserService {
	return &UserService{store: store, clock: clk, logger: logger.GetGlobalLogger()}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (user.User, error) {
	u, err := s.store.Users().GetByUUID(ctx, id)
	if err != nil {
		return user.User{}, notFoundAs(err, instoo_errors.CodeUserNotFound, "user not found")
	}
	return u, nil
}

// UpdateProfile changes the caller's nickname. Nicknames are unique among
// active users, and setting the current one again is rejected.
func (s *UserService) UpdateProfile(ctx context.Context, actor domain.Actor, cmd commands.UpdateProfileCommand) (user.User, error) {
	if err := cmd.Validate(); err != nil {
		return user.User{}, err
	}
	nickname := *cmd.Nickname

	var updated user.User
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := loadActor(ctx, tx, actor)
		if err != nil {
			return err
		}
		if current.Nickname == nickname {
			return instoo_errors.Validation(instoo_errors.CodeNicknameUnchanged, "nickname is the same as the current one")
		}

		taken, err := tx.Users().NicknameTaken(ctx, nickname, current.UUID)
		if err != nil {
			return wrapInternal("failed to check nickname", err)
		}
		if taken {
			return nicknameTaken()
		}

		if err := tx.Users().UpdateNickname(ctx, current.UUID, nickname, s.clock.Now()); err != nil {
			if errors.Is(err, instoo_errors.ErrAlreadyExists) {
				return nicknameTaken()
			}
			return notFoundAs(err, instoo_errors.CodeUserNotFound, "user not found")
		}
		if updated, err = tx.Users().GetByUUID(ctx, current.UUID); err != nil {
			return wrapInternal("failed to reload user", err)
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}

	s.logger.Info(ctx, "nickname updated", zap.String("user_uuid", actor.ID.String()))
	return updated, nil
}

func nicknameTaken() error {
	return instoo_errors.AlreadyExists(instoo_errors.CodeNicknameTaken, "nickname is already in use")
}
