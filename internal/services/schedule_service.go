package services

import (
	"context"
	"errors"
	"time"

	"instoo/internal/clock"
	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/domain/user"
	"instoo/internal/events"
	"instoo/internal/metrics"
	"instoo/internal/proxy"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"
	"instoo/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleCache holds rendered schedule views. Failures are logged and
// otherwise ignored; Postgres stays the source of truth.
//
// Get returns a fence with every lookup. Set refuses the fill when an
// Invalidate ran after that lookup, so a slow reader cannot put back a view
// older than a committed write.
type ScheduleCache interface {
	Get(ctx context.Context, id uuid.UUID) (v schedule.View, fence int64, ok bool, err error)
	Set(ctx context.Context, v schedule.View, fence int64) (bool, error)
	Invalidate(ctx context.Context, id uuid.UUID) error
}

type ScheduleService struct {
	store   repository.Store
	clock   clock.Clock
	access  *proxy.AccessControl
	proxies *commands.ProxyChain
	events  *EventPublisher
	cache   ScheduleCache
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewScheduleService(store repository.Store, clk clock.Clock, access *proxy.AccessControl, publisher *EventPublisher, cache ScheduleCache, m *metrics.Metrics) *ScheduleService {
	if access == nil {
		access = proxy.NewAccessControl()
	}
	return &ScheduleService{
		store:   store,
		clock:   clk,
		access:  access,
		proxies: commands.NewProxyChain(access),
		events:  publisher,
		cache:   cache,
		metrics: m,
		logger:  logger.GetGlobalLogger(),
	}
}

// Create validates the draft, then inserts the schedule at version 1 together
// with its CREATE history row.
func (s *ScheduleService) Create(ctx context.Context, actor domain.Actor, cmd commands.CreateScheduleCommand) (schedule.View, error) {
	if err := cmd.Validate(); err != nil {
		return schedule.View{}, err
	}
	if err := s.proxies.Authorize(ctx, actor, cmd); err != nil {
		return schedule.View{}, err
	}

	draft := cmd.Draft
	if err := schedule.ValidateDraft(&draft, s.clock.Today(), s.clock.Location()); err != nil {
		return schedule.View{}, err
	}

	var created schedule.View
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		author, err := loadActor(ctx, tx, actor)
		if err != nil {
			return err
		}

		st, err := tx.Streamers().GetByUUID(ctx, draft.StreamerUUID)
		if err != nil {
			return notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		if !st.IsActive || st.IsDeleted() {
			return instoo_errors.NotFound(instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		if !st.IsVerified {
			return instoo_errors.Validation(instoo_errors.CodeNotVerified, "schedules can only be created for verified streamers")
		}

		taken, err := tx.Schedules().ExistsForStreamerDate(ctx, draft.StreamerUUID, draft.ScheduleDate)
		if err != nil {
			return wrapInternal("failed to check schedule date", err)
		}
		if taken {
			return duplicateDay()
		}

		now := schedule.NextUpdatedAt(time.Time{}, s.clock.Now())
		rec := schedule.Schedule{
			UUID:              uuid.New(),
			Title:             draft.Title,
			ScheduleDate:      draft.ScheduleDate,
			StartTime:         draft.StartTime,
			Status:            draft.Status,
			Description:       schedule.NullString(draft.Description),
			ExternalNoticeURL: schedule.NullString(draft.ExternalNoticeURL),
			StreamerUUID:      st.UUID,
			CreatedBy:         author.UUID,
			UpdatedBy:         author.UUID,
			Version:           1,
			AuditFields:       domain.AuditFields{CreatedAt: now, UpdatedAt: now},
		}
		if err := tx.Schedules().Create(ctx, &rec); err != nil {
			// two creates can pass the existence check together; the partial index decides
			if errors.Is(err, instoo_errors.ErrAlreadyExists) {
				return duplicateDay()
			}
			return wrapInternal("failed to create schedule", err)
		}

		created = schedule.View{Schedule: rec, Streamer: st.Ref(), CreatedByUser: author.Ref(), UpdatedByUser: author.Ref()}
		if err := recordHistory(ctx, tx, domain.HistoryActionCreate, nil, &created, author.UUID, now); err != nil {
			return err
		}
		return s.events.ScheduleChanged(ctx, tx, events.EventTypeScheduleCreated, rec, author.UUID, now)
	})
	if err != nil {
		return schedule.View{}, err
	}

	s.logger.Info(ctx, "schedule created",
		zap.String("schedule_uuid", created.UUID.String()),
		zap.String("streamer_uuid", created.StreamerUUID.String()),
		zap.String("schedule_date", created.ScheduleDate))
	return created, nil
}

// Get returns a live schedule, from cache when possible.
func (s *ScheduleService) Get(ctx context.Context, id uuid.UUID) (schedule.View, error) {
	fill := false
	var fence int64
	if s.cache != nil {
		v, seen, ok, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			s.logger.Warn(ctx, "schedule cache read failed", zap.String("schedule_uuid", id.String()), zap.Error(err))
		case ok:
			return v, nil
		default:
			fill, fence = true, seen
		}
	}

	v, err := s.store.Schedules().GetByUUID(ctx, id)
	if err != nil {
		return schedule.View{}, notFoundAs(err, instoo_errors.CodeScheduleNotFound, "schedule not found")
	}

	if fill {
		if _, err := s.cache.Set(ctx, v, fence); err != nil {
			s.logger.Warn(ctx, "schedule cache write failed", zap.String("schedule_uuid", id.String()), zap.Error(err))
		}
	}
	return v, nil
}

// Update applies a patch if cmd.ExpectedUpdatedAt still matches the stored
// token. The row stays locked from the check until commit.
func (s *ScheduleService) Update(ctx context.Context, actor domain.Actor, cmd commands.UpdateScheduleCommand) (schedule.View, error) {
	if err := cmd.Validate(); err != nil {
		return schedule.View{}, err
	}
	if err := s.proxies.Authorize(ctx, actor, cmd); err != nil {
		return schedule.View{}, err
	}

	var updated schedule.View
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		editor, err := loadActor(ctx, tx, actor)
		if err != nil {
			return err
		}

		current, err := tx.Schedules().GetForUpdate(ctx, cmd.ScheduleUUID)
		if err != nil {
			return notFoundAs(err, instoo_errors.CodeScheduleNotFound, "schedule not found")
		}
		if !current.UpdatedAt.Equal(cmd.ExpectedUpdatedAt) {
			return s.conflict("update")
		}
		if err := s.access.CanEditSchedule(actor, current.ScheduleDate, s.clock.Today()); err != nil {
			return err
		}

		next, err := schedule.Apply(current.Schedule, cmd.Patch, s.clock.Location())
		if err != nil {
			return err
		}
		next.Touch(editor.UUID, current.UpdatedAt, s.clock.Now())

		if err := tx.Schedules().Update(ctx, &next, current.Version); err != nil {
			if errors.Is(err, instoo_errors.ErrConflict) {
				return s.conflict("update")
			}
			return wrapInternal("failed to update schedule", err)
		}

		updated = schedule.View{Schedule: next, Streamer: current.Streamer, CreatedByUser: current.CreatedByUser, UpdatedByUser: editor.Ref()}
		if err := recordHistory(ctx, tx, domain.HistoryActionUpdate, &current, &updated, editor.UUID, next.UpdatedAt); err != nil {
			return err
		}
		return s.events.ScheduleChanged(ctx, tx, events.EventTypeScheduleUpdated, next, editor.UUID, next.UpdatedAt)
	})
	if err != nil {
		return schedule.View{}, err
	}

	s.invalidate(ctx, cmd.ScheduleUUID)
	return updated, nil
}

// Delete soft-deletes a schedule. The DELETE history row carries the deleted
// state as its current snapshot.
func (s *ScheduleService) Delete(ctx context.Context, actor domain.Actor, cmd commands.DeleteScheduleCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if err := s.proxies.Authorize(ctx, actor, cmd); err != nil {
		return err
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		admin, err := loadActor(ctx, tx, actor)
		if err != nil {
			return err
		}

		current, err := tx.Schedules().GetForUpdate(ctx, cmd.ScheduleUUID)
		if err != nil {
			return notFoundAs(err, instoo_errors.CodeScheduleNotFound, "schedule not found")
		}

		next := current.Schedule
		next.Touch(admin.UUID, current.UpdatedAt, s.clock.Now())
		next.DeletedAt.Time = next.UpdatedAt
		next.DeletedAt.Valid = true

		if err := tx.Schedules().SoftDelete(ctx, &next, current.Version); err != nil {
			if errors.Is(err, instoo_errors.ErrConflict) {
				return s.conflict("delete")
			}
			return wrapInternal("failed to delete schedule", err)
		}

		deleted := schedule.View{Schedule: next, Streamer: current.Streamer, CreatedByUser: current.CreatedByUser, UpdatedByUser: admin.Ref()}
		if err := recordHistory(ctx, tx, domain.HistoryActionDelete, &current, &deleted, admin.UUID, next.UpdatedAt); err != nil {
			return err
		}
		return s.events.ScheduleChanged(ctx, tx, events.EventTypeScheduleDeleted, next, admin.UUID, next.UpdatedAt)
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, cmd.ScheduleUUID)
	s.logger.Info(ctx, "schedule deleted", zap.String("schedule_uuid", cmd.ScheduleUUID.String()))
	return nil
}

// List returns one keyset page. Reads take no locks.
func (s *ScheduleService) List(ctx context.Context, q schedule.ListQuery) (schedule.Page, error) {
	if err := q.Normalize(); err != nil {
		return schedule.Page{}, err
	}
	rows, err := s.store.Schedules().List(ctx, q)
	if err != nil {
		return schedule.Page{}, instoo_errors.Internal("failed to list schedules", err)
	}
	return schedule.NewPage(rows, q.Limit), nil
}

// History returns every transition of a schedule, oldest first. It keeps
// working after the schedule is deleted.
func (s *ScheduleService) History(ctx context.Context, id uuid.UUID) ([]schedule.History, error) {
	items, err := s.store.History().ListBySchedule(ctx, id)
	if err != nil {
		return nil, instoo_errors.Internal("failed to load schedule history", err)
	}
	if len(items) == 0 {
		return nil, instoo_errors.NotFound(instoo_errors.CodeHistoryNotFound, "no history for schedule")
	}
	return items, nil
}

// HistoryAt returns the snapshot of a schedule as it was at version.
func (s *ScheduleService) HistoryAt(ctx context.Context, id uuid.UUID, version int) (schedule.History, error) {
	if version < 1 {
		return schedule.History{}, instoo_errors.Validation(instoo_errors.CodeInvalidInput, "version must be positive")
	}
	h, err := s.store.History().GetByVersion(ctx, id, version)
	if err != nil {
		return schedule.History{}, notFoundAs(err, instoo_errors.CodeHistoryNotFound, "no history for that version")
	}
	return h, nil
}

func (s *ScheduleService) conflict(op string) error {
	s.metrics.ObserveConflict(op)
	return instoo_errors.Conflict(instoo_errors.CodeConflictModified, "the schedule was modified by someone else; reload and retry")
}

func (s *ScheduleService) invalidate(ctx context.Context, id uuid.UUID) {
	invalidateSchedule(ctx, s.cache, s.logger, id)
}

func invalidateSchedule(ctx context.Context, cache ScheduleCache, l *logger.Logger, id uuid.UUID) {
	if cache == nil {
		return
	}
	if err := cache.Invalidate(ctx, id); err != nil {
		l.Warn(ctx, "schedule cache invalidation failed", zap.String("schedule_uuid", id.String()), zap.Error(err))
	}
}

func duplicateDay() error {
	return instoo_errors.AlreadyExists(instoo_errors.CodeAlreadyExists, "the streamer already has a schedule on that date")
}

// loadActor confirms the actor still exists inside tx.
func loadActor(ctx context.Context, tx repository.Store, actor domain.Actor) (user.User, error) {
	u, err := tx.Users().GetByUUID(ctx, actor.ID)
	if err != nil {
		return user.User{}, notFoundAs(err, instoo_errors.CodeUserNotFound, "user not found")
	}
	return u, nil
}
