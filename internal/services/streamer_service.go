package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"instoo/internal/clock"
	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/domain/streamer"
	"instoo/internal/events"
	"instoo/internal/metrics"
	"instoo/internal/repository"
	instoo_errors "instoo/pkg/errors"
	"instoo/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SearchLimit caps streamer name search results.
const SearchLimit = 5

type StreamerService struct {
	store   repository.Store
	clock   clock.Clock
	proxies *commands.ProxyChain
	events  *EventPublisher
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewStreamerService(store repository.Store, clk clock.Clock, proxies *commands.ProxyChain, publisher *EventPublisher, m *metrics.Metrics) *StreamerService {
	return &StreamerService{
		store:   store,
		clock:   clk,
		proxies: proxies,
		events:  publisher,
		metrics: m,
		logger:  logger.GetGlobalLogger(),
	}
}

// Create registers a streamer. New streamers start unverified. A live
// streamer with the same name on any of the listed platforms is a duplicate.
func (s *StreamerService) Create(ctx context.Context, actor domain.Actor, cmd commands.CreateStreamerCommand) (streamer.Streamer, error) {
	if err := cmd.Validate(); err != nil {
		return streamer.Streamer{}, err
	}

	now := schedule.NextUpdatedAt(time.Time{}, s.clock.Now())
	st := streamer.Streamer{
		UUID:            uuid.New(),
		Name:            strings.TrimSpace(cmd.Name),
		ProfileImageURL: schedule.NullString(strings.TrimSpace(cmd.ProfileImageURL)),
		Description:     schedule.NullString(strings.TrimSpace(cmd.Description)),
		IsActive:        true,
		Platforms:       cmd.Platforms,
		CreatedBy:       actor.ID,
		UpdatedBy:       actor.ID,
		AuditFields:     domain.AuditFields{CreatedAt: now, UpdatedAt: now},
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := loadActor(ctx, tx, actor); err != nil {
			return err
		}
		for _, p := range st.Platforms {
			taken, err := tx.Streamers().ExistsOnPlatform(ctx, st.Name, p.PlatformName)
			if err != nil {
				return wrapInternal("failed to check streamer", err)
			}
			if taken {
				return instoo_errors.AlreadyExists(instoo_errors.CodeDuplicateStreamer, "a streamer with that name already exists on "+p.PlatformName)
			}
		}
		if err := tx.Streamers().Create(ctx, &st); err != nil {
			return wrapInternal("failed to create streamer", err)
		}
		return s.events.StreamerChanged(ctx, tx, events.EventTypeStreamerCreated, st, actor.ID, now)
	})
	if err != nil {
		return streamer.Streamer{}, err
	}
	return st, nil
}

func (s *StreamerService) Get(ctx context.Context, id uuid.UUID) (streamer.Streamer, error) {
	st, err := s.store.Streamers().GetByUUID(ctx, id)
	if err != nil {
		return streamer.Streamer{}, notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
	}
	if !st.IsActive || st.IsDeleted() {
		return streamer.Streamer{}, instoo_errors.NotFound(instoo_errors.CodeStreamerNotFound, "streamer not found")
	}
	return st, nil
}

// List returns one page of active streamers with the total match count.
func (s *StreamerService) List(ctx context.Context, q streamer.ListQuery) (streamer.Page, error) {
	if err := q.Normalize(); err != nil {
		return streamer.Page{}, err
	}
	items, total, err := s.store.Streamers().List(ctx, q)
	if err != nil {
		return streamer.Page{}, instoo_errors.Internal("failed to list streamers", err)
	}
	if items == nil {
		items = []streamer.Streamer{}
	}
	return streamer.Page{Page: q.Page, Size: q.Size, TotalCount: total, Items: items}, nil
}

// Search matches names by substring. Verified and popular streamers come first.
func (s *StreamerService) Search(ctx context.Context, term string) ([]streamer.Streamer, error) {
	term = strings.TrimSpace(term)
	if utf8.RuneCountInString(term) < schedule.MinSearchLength {
		return nil, instoo_errors.Validation(instoo_errors.CodeSearchTermTooShort, "search term must be at least 2 characters")
	}
	items, err := s.store.Streamers().SearchByName(ctx, term, SearchLimit)
	if err != nil {
		return nil, instoo_errors.Internal("failed to search streamers", err)
	}
	return items, nil
}

// Update applies a patch if cmd.ExpectedUpdatedAt still matches the stored
// token. Renaming onto another live streamer's name is refused.
func (s *StreamerService) Update(ctx context.Context, actor domain.Actor, cmd commands.UpdateStreamerCommand) (streamer.Streamer, error) {
	if err := cmd.Validate(); err != nil {
		return streamer.Streamer{}, err
	}
	if err := s.proxies.Authorize(ctx, actor, cmd); err != nil {
		return streamer.Streamer{}, err
	}

	var updated streamer.Streamer
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		editor, err := loadActor(ctx, tx, actor)
		if err != nil {
			return err
		}

		current, err := tx.Streamers().GetForUpdate(ctx, cmd.StreamerUUID)
		if err != nil {
			return notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		if !current.IsActive {
			return instoo_errors.NotFound(instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		if !current.UpdatedAt.Equal(cmd.ExpectedUpdatedAt) {
			return s.conflict()
		}

		next, err := streamer.Apply(current, cmd.Patch)
		if err != nil {
			return err
		}
		if next.Name != current.Name {
			taken, err := tx.Streamers().ExistsByName(ctx, next.Name, current.UUID)
			if err != nil {
				return wrapInternal("failed to check streamer name", err)
			}
			if taken {
				return instoo_errors.AlreadyExists(instoo_errors.CodeDuplicateStreamer, "another streamer already uses that name")
			}
		}
		next.UpdatedBy = editor.UUID
		next.UpdatedAt = schedule.NextUpdatedAt(current.UpdatedAt, s.clock.Now())

		if err := tx.Streamers().Update(ctx, &next, current.UpdatedAt); err != nil {
			if errors.Is(err, instoo_errors.ErrConflict) {
				return s.conflict()
			}
			return wrapInternal("failed to update streamer", err)
		}
		updated = next
		return s.events.StreamerChanged(ctx, tx, events.EventTypeStreamerUpdated, next, editor.UUID, next.UpdatedAt)
	})
	if err != nil {
		return streamer.Streamer{}, err
	}
	return updated, nil
}

// Delete deactivates a streamer. Admin only. Its schedules drop out of
// listings with it.
func (s *StreamerService) Delete(ctx context.Context, actor domain.Actor, cmd commands.DeleteStreamerCommand) error {
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
		current, err := tx.Streamers().GetForUpdate(ctx, cmd.StreamerUUID)
		if err != nil {
			return notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		if !current.IsActive {
			return instoo_errors.NotFound(instoo_errors.CodeStreamerNotFound, "streamer not found")
		}

		now := schedule.NextUpdatedAt(current.UpdatedAt, s.clock.Now())
		if err := tx.Streamers().SoftDelete(ctx, current.UUID, admin.UUID, now); err != nil {
			return notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		current.IsActive = false
		return s.events.StreamerChanged(ctx, tx, events.EventTypeStreamerDeleted, current, admin.UUID, now)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "streamer deleted", zap.String("streamer_uuid", cmd.StreamerUUID.String()))
	return nil
}

// Verify sets the verified flag. Admin only.
func (s *StreamerService) Verify(ctx context.Context, actor domain.Actor, cmd commands.VerifyStreamerCommand) (streamer.Streamer, error) {
	if err := cmd.Validate(); err != nil {
		return streamer.Streamer{}, err
	}
	if err := s.proxies.Authorize(ctx, actor, cmd); err != nil {
		return streamer.Streamer{}, err
	}

	var st streamer.Streamer
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		current, err := tx.Streamers().GetForUpdate(ctx, cmd.StreamerUUID)
		if err != nil {
			return notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		now := schedule.NextUpdatedAt(current.UpdatedAt, s.clock.Now())
		if err := tx.Streamers().SetVerified(ctx, cmd.StreamerUUID, cmd.Verified, actor.ID, now); err != nil {
			return notFoundAs(err, instoo_errors.CodeStreamerNotFound, "streamer not found")
		}
		if st, err = tx.Streamers().GetByUUID(ctx, cmd.StreamerUUID); err != nil {
			return wrapInternal("failed to reload streamer", err)
		}
		return s.events.StreamerChanged(ctx, tx, events.EventTypeStreamerVerified, st, actor.ID, now)
	})
	if err != nil {
		return streamer.Streamer{}, err
	}
	return st, nil
}

func (s *StreamerService) conflict() error {
	s.metrics.ObserveConflict("streamer_update")
	return instoo_errors.Conflict(instoo_errors.CodeConflictModified, "the streamer was modified by someone else; reload and retry")
}
