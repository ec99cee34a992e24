package services

import (
	"context"
	"errors"

	"instoo/internal/clock"
	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/streamer"
	"instoo/internal/events"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"
	"instoo/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FollowService keeps streamer_follows and streamers.follow_count in step.
type FollowService struct {
	store  repository.Store
	clock  clock.Clock
	events *EventPublisher
	logger *logger.Logger
}

func NewFollowService(store repository.Store, clk clock.Clock, publisher *EventPublisher) *FollowService {
	return &FollowService{store: store, clock: clk, events: publisher, logger: logger.GetGlobalLogger()}
}

type FollowStatus struct {
	IsFollowing bool `json:"isFollowing"`
	IsActive    bool `json:"isActive"`
}

// BatchToggleResult lists which streamers were updated and which had no
// follow to update.
type BatchToggleResult struct {
	Updated []uuid.UUID `json:"updated"`
	Skipped []uuid.UUID `json:"skipped"`
}

func (s *FollowService) Follow(ctx context.Context, actor domain.Actor, streamerID uuid.UUID) (int64, error) {
	cmd := commands.FollowCommand{StreamerUUID: streamerID}
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := loadActor(ctx, tx, actor); err != nil {
			return err
		}
		st, err := tx.Streamers().GetByUUID(ctx, streamerID)
		if err != nil {
			return notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		if !st.IsActive || st.IsDeleted() {
			return instoo_errors.NotFound(instoo_errors.CodeStreamerNotFound, "streamer not found")
		}

		now := s.clock.Now()
		err = tx.Follows().Create(ctx, &streamer.Follow{UserUUID: actor.ID, StreamerUUID: streamerID, IsActive: true, CreatedAt: now, UpdatedAt: now})
		if errors.Is(err, instoo_errors.ErrAlreadyExists) {
			return instoo_errors.AlreadyExists(instoo_errors.CodeAlreadyFollowing, "already following this streamer")
		}
		if err != nil {
			return wrapInternal("failed to follow streamer", err)
		}

		if count, err = tx.Streamers().IncrementFollowCount(ctx, streamerID); err != nil {
			return instoo_errors.Internal("failed to update follow count", err)
		}
		if err := tx.Follows().AppendHistory(ctx, &streamer.FollowHistory{UserUUID: actor.ID, StreamerUUID: streamerID, Action: domain.FollowActionFollow, CreatedAt: now}); err != nil {
			return instoo_errors.Internal("failed to record follow history", err)
		}
		return s.events.FollowChanged(ctx, tx, events.EventTypeStreamerFollowed, streamerID, actor.ID, count, now)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *FollowService) Unfollow(ctx context.Context, actor domain.Actor, streamerID uuid.UUID) (int64, error) {
	cmd := commands.FollowCommand{StreamerUUID: streamerID, Undo: true}
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Follows().Delete(ctx, actor.ID, streamerID); err != nil {
			return notFoundAs(err, instoo_errors.CodeFollowNotFound, "follow not found")
		}

		var err error
		if count, err = tx.Streamers().DecrementFollowCount(ctx, streamerID); err != nil {
			return instoo_errors.Internal("failed to update follow count", err)
		}
		now := s.clock.Now()
		if err := tx.Follows().AppendHistory(ctx, &streamer.FollowHistory{UserUUID: actor.ID, StreamerUUID: streamerID, Action: domain.FollowActionUnfollow, CreatedAt: now}); err != nil {
			return instoo_errors.Internal("failed to record follow history", err)
		}
		return s.events.FollowChanged(ctx, tx, events.EventTypeStreamerUnfollowed, streamerID, actor.ID, count, now)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *FollowService) Status(ctx context.Context, actor domain.Actor, streamerID uuid.UUID) (FollowStatus, error) {
	f, err := s.store.Follows().Get(ctx, actor.ID, streamerID)
	if errors.Is(err, instoo_errors.ErrNotFound) {
		return FollowStatus{}, nil
	}
	if err != nil {
		return FollowStatus{}, instoo_errors.Internal("failed to check follow", err)
	}
	return FollowStatus{IsFollowing: true, IsActive: f.IsActive}, nil
}

func (s *FollowService) ListMine(ctx context.Context, actor domain.Actor) ([]streamer.FollowView, error) {
	items, err := s.store.Follows().ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, instoo_errors.Internal("failed to list follows", err)
	}
	return items, nil
}

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 100
)

// History returns the caller's follow and unfollow actions, newest first.
func (s *FollowService) History(ctx context.Context, actor domain.Actor, limit int) ([]streamer.FollowHistory, error) {
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, instoo_errors.Validation(instoo_errors.CodeInvalidInput, "limit must be between 1 and 100")
	}
	items, err := s.store.Follows().ListHistoryByUser(ctx, actor.ID, limit)
	if err != nil {
		return nil, instoo_errors.Internal("failed to list follow history", err)
	}
	if items == nil {
		items = []streamer.FollowHistory{}
	}
	return items, nil
}

// BatchToggle sets isActive on each listed follow independently. Items with
// no follow row are skipped, and a failure on one item does not undo others.
func (s *FollowService) BatchToggle(ctx context.Context, actor domain.Actor, cmd commands.BatchToggleFollowsCommand) (BatchToggleResult, error) {
	if err := cmd.Validate(); err != nil {
		return BatchToggleResult{}, err
	}

	result := BatchToggleResult{Updated: []uuid.UUID{}, Skipped: []uuid.UUID{}}
	for _, item := range cmd.Items {
		ok, err := s.store.Follows().SetActive(ctx, actor.ID, item.StreamerUUID, item.IsActive, s.clock.Now())
		if err != nil {
			return result, instoo_errors.Internal("failed to toggle follow", err)
		}
		if !ok {
			result.Skipped = append(result.Skipped, item.StreamerUUID)
			continue
		}
		result.Updated = append(result.Updated, item.StreamerUUID)
	}

	s.logger.Info(ctx, "follows toggled", zap.Int("updated", len(result.Updated)), zap.Int("skipped", len(result.Skipped)))
	return result, nil
}
