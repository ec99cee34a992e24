package services

import (
	"context"
	"errors"

	"instoo/internal/clock"
	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/events"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"
	"instoo/pkg/logger"

	"github.com/google/uuid"
)

// LikeService keeps schedule_likes and schedules.like_count in step.
type LikeService struct {
	store  repository.Store
	clock  clock.Clock
	events *EventPublisher
	cache  ScheduleCache
	logger *logger.Logger
}

func NewLikeService(store repository.Store, clk clock.Clock, publisher *EventPublisher, cache ScheduleCache) *LikeService {
	return &LikeService{store: store, clock: clk, events: publisher, cache: cache, logger: logger.GetGlobalLogger()}
}

// Like inserts the relation row and bumps the counter. The primary key on
// the relation rejects a second like; there is no pre-check.
func (s *LikeService) Like(ctx context.Context, actor domain.Actor, scheduleID uuid.UUID) (int64, error) {
	cmd := commands.LikeCommand{ScheduleUUID: scheduleID}
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := loadActor(ctx, tx, actor); err != nil {
			return err
		}
		if _, err := tx.Schedules().GetByUUID(ctx, scheduleID); err != nil {
			return notFoundAs(err, instoo_errors.CodeScheduleNotFound, "schedule not found")
		}

		now := s.clock.Now()
		err := tx.Likes().Create(ctx, &schedule.Like{UserUUID: actor.ID, ScheduleUUID: scheduleID, CreatedAt: now})
		if errors.Is(err, instoo_errors.ErrAlreadyExists) {
			return instoo_errors.AlreadyExists(instoo_errors.CodeAlreadyLiked, "schedule already liked")
		}
		if err != nil {
			return wrapInternal("failed to like schedule", err)
		}

		if count, err = tx.Schedules().IncrementLikeCount(ctx, scheduleID); err != nil {
			return instoo_errors.Internal("failed to update like count", err)
		}
		return s.events.LikeChanged(ctx, tx, events.EventTypeScheduleLiked, scheduleID, actor.ID, count, now)
	})
	if err != nil {
		return 0, err
	}

	invalidateSchedule(ctx, s.cache, s.logger, scheduleID)
	return count, nil
}

// Unlike deletes the relation row and decrements the counter, clamped at zero.
func (s *LikeService) Unlike(ctx context.Context, actor domain.Actor, scheduleID uuid.UUID) (int64, error) {
	cmd := commands.LikeCommand{ScheduleUUID: scheduleID, Undo: true}
	if err := cmd.Validate(); err != nil {
		return 0, err
	}

	var count int64
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Likes().Delete(ctx, actor.ID, scheduleID); err != nil {
			return notFoundAs(err, instoo_errors.CodeLikeNotFound, "like not found")
		}

		var err error
		if count, err = tx.Schedules().DecrementLikeCount(ctx, scheduleID); err != nil {
			return instoo_errors.Internal("failed to update like count", err)
		}
		return s.events.LikeChanged(ctx, tx, events.EventTypeScheduleUnliked, scheduleID, actor.ID, count, s.clock.Now())
	})
	if err != nil {
		return 0, err
	}

	invalidateSchedule(ctx, s.cache, s.logger, scheduleID)
	return count, nil
}

func (s *LikeService) IsLiked(ctx context.Context, actor domain.Actor, scheduleID uuid.UUID) (bool, error) {
	liked, err := s.store.Likes().Exists(ctx, actor.ID, scheduleID)
	if err != nil {
		return false, instoo_errors.Internal("failed to check like", err)
	}
	return liked, nil
}
