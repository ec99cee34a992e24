package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/events"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusScheduled, at("2025-03-10T11:00:00Z")))

	assert.Equal(t, 1, v.Version)
	assert.Equal(t, "Hanul", v.Streamer.Name)
	assert.Equal(t, "viewer", v.CreatedByUser.Nickname)
	assert.Equal(t, v.CreatedAt, v.UpdatedAt)

	history, err := f.schedules.History(ctx, v.UUID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.HistoryActionCreate, history[0].Action)
	assert.Nil(t, history[0].PreviousSnapshot)
	require.NotNil(t, history[0].CurrentSnapshot)
	assert.Equal(t, 1, history[0].CurrentSnapshot.Version)

	state := f.store.peek()
	require.Len(t, state.outbox, 1)
	assert.Equal(t, events.EventTypeScheduleCreated, state.outbox[0].EventType)
	assert.Equal(t, events.AggregateTypeSchedule, state.outbox[0].AggregateType)
	assert.Equal(t, v.UUID.String(), state.outbox[0].AggregateID)
}

func TestScheduleService_CreateRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, draft(f.verified, "2025-03-11", schedule.StatusTimeTBD, nil))

	cases := []struct {
		name  string
		actor domain.Actor
		draft schedule.Draft
		kind  instoo_errors.Kind
		code  string
	}{
		{"SameDay", f.user, draft(f.verified, "2025-03-11", schedule.StatusBreak, nil), instoo_errors.KindAlreadyExists, instoo_errors.CodeAlreadyExists},
		{"PastDate", f.user, draft(f.verified, "2025-03-09", schedule.StatusBreak, nil), instoo_errors.KindValidation, instoo_errors.CodePastDateNotAllowed},
		{"Unverified", f.user, draft(f.unverified, "2025-03-12", schedule.StatusBreak, nil), instoo_errors.KindValidation, instoo_errors.CodeNotVerified},
		{"UnknownStreamer", f.user, draft(uuid.New(), "2025-03-12", schedule.StatusBreak, nil), instoo_errors.KindNotFound, instoo_errors.CodeStreamerNotFound},
		{"UnknownActor", domain.Actor{ID: uuid.New(), Role: domain.RoleUser}, draft(f.verified, "2025-03-12", schedule.StatusBreak, nil), instoo_errors.KindNotFound, instoo_errors.CodeUserNotFound},
		{"TimeOnBreak", f.user, draft(f.verified, "2025-03-12", schedule.StatusBreak, at("2025-03-12T11:00:00Z")), instoo_errors.KindValidation, instoo_errors.CodeTimeOnlyForScheduled},
		{"MissingTime", f.user, draft(f.verified, "2025-03-12", schedule.StatusScheduled, nil), instoo_errors.KindValidation, instoo_errors.CodeScheduledNeedsTime},
		// 16:00Z on the 12th is already the 13th in Seoul
		{"TimeOnOtherDay", f.user, draft(f.verified, "2025-03-12", schedule.StatusScheduled, at("2025-03-12T16:00:00Z")), instoo_errors.KindValidation, instoo_errors.CodeDateTimeMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.schedules.Create(ctx, tc.actor, commands.CreateScheduleCommand{Draft: tc.draft})
			require.Error(t, err)
			assert.Equal(t, tc.kind, instoo_errors.KindOf(err))
			assert.Equal(t, tc.code, codeOf(err))
		})
	}

	assert.Len(t, f.store.peek().schedules, 1)
}

func TestScheduleService_CreateUsesReferenceDate(t *testing.T) {
	f := newFixture(t)
	// 00:30 on the 10th in Seoul, still the 9th in UTC
	f.clock.Set(time.Date(2025, 3, 9, 15, 30, 0, 0, time.UTC))

	_, err := f.schedules.Create(context.Background(), f.user, commands.CreateScheduleCommand{
		Draft: draft(f.verified, "2025-03-09", schedule.StatusTimeTBD, nil),
	})
	assert.Equal(t, instoo_errors.CodePastDateNotAllowed, codeOf(err))

	f.create(t, draft(f.verified, "2025-03-10", schedule.StatusTimeTBD, nil))
}

func TestScheduleService_CreateRollsBackOnHistoryFailure(t *testing.T) {
	f := newFixture(t)
	f.store.db.state.failHistory = true

	_, err := f.schedules.Create(context.Background(), f.user, commands.CreateScheduleCommand{
		Draft: draft(f.verified, "2025-03-12", schedule.StatusTimeTBD, nil),
	})
	assert.Equal(t, instoo_errors.KindInternal, instoo_errors.KindOf(err))

	state := f.store.peek()
	assert.Empty(t, state.schedules)
	assert.Empty(t, state.history)
	assert.Empty(t, state.outbox)
}

func TestScheduleService_UpdateToBreakClearsStartTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusScheduled, at("2025-03-10T11:00:00Z")))

	brk := schedule.StatusBreak
	updated, err := f.schedules.Update(ctx, f.other, commands.UpdateScheduleCommand{
		ScheduleUUID:      v.UUID,
		ExpectedUpdatedAt: v.UpdatedAt,
		Patch:             schedule.Patch{Status: &brk},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, schedule.StatusBreak, updated.Status)
	assert.Nil(t, updated.StartTime)
	assert.True(t, updated.UpdatedAt.After(v.UpdatedAt))
	assert.Equal(t, "lurker", updated.UpdatedByUser.Nickname)
	assert.Equal(t, "viewer", updated.CreatedByUser.Nickname)

	history, err := f.schedules.History(ctx, v.UUID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	last := history[1]
	assert.Equal(t, domain.HistoryActionUpdate, last.Action)
	require.NotNil(t, last.PreviousSnapshot)
	assert.Equal(t, v.Snapshot(), last.PreviousSnapshot)
	assert.Equal(t, 2, last.CurrentSnapshot.Version)

	atV1, err := f.schedules.HistoryAt(ctx, v.UUID, 1)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusScheduled, atV1.CurrentSnapshot.Status)

	_, err = f.schedules.HistoryAt(ctx, v.UUID, 7)
	assert.Equal(t, instoo_errors.CodeHistoryNotFound, codeOf(err))
	assert.Contains(t, f.cache.invalidated, v.UUID)
}

func TestScheduleService_UpdateStaleToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusTimeTBD, nil))

	title := "Renamed"
	_, err := f.schedules.Update(ctx, f.user, commands.UpdateScheduleCommand{
		ScheduleUUID:      v.UUID,
		ExpectedUpdatedAt: v.UpdatedAt.Add(-1),
		Patch:             schedule.Patch{Title: &title},
	})
	assert.Equal(t, instoo_errors.KindConflict, instoo_errors.KindOf(err))
	assert.Equal(t, instoo_errors.CodeConflictModified, codeOf(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ConflictCounter.WithLabelValues("update")))

	after, err := f.schedules.Get(ctx, v.UUID)
	require.NoError(t, err)
	assert.Equal(t, v.Title, after.Title)
	assert.Equal(t, 1, after.Version)

	history, err := f.schedules.History(ctx, v.UUID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestScheduleService_ConcurrentUpdatesWithSameToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusTimeTBD, nil))

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := "Writer title"
			_, errs[i] = f.schedules.Update(ctx, f.user, commands.UpdateScheduleCommand{
				ScheduleUUID:      v.UUID,
				ExpectedUpdatedAt: v.UpdatedAt,
				Patch:             schedule.Patch{Title: &title},
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case codeOf(err) == instoo_errors.CodeConflictModified:
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)

	after, err := f.schedules.Get(ctx, v.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Version)
}

func TestScheduleService_PastScheduleNeedsAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusTimeTBD, nil))
	f.clock.Set(fixtureNow.AddDate(0, 0, 2))

	title := "Late fix"
	cmd := commands.UpdateScheduleCommand{ScheduleUUID: v.UUID, ExpectedUpdatedAt: v.UpdatedAt, Patch: schedule.Patch{Title: &title}}

	_, err := f.schedules.Update(ctx, f.user, cmd)
	assert.Equal(t, instoo_errors.KindForbidden, instoo_errors.KindOf(err))
	assert.Equal(t, instoo_errors.CodePastScheduleAdminOnly, codeOf(err))

	updated, err := f.schedules.Update(ctx, f.admin, cmd)
	require.NoError(t, err)
	assert.Equal(t, "Late fix", updated.Title)
}

func TestScheduleService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusTimeTBD, nil))

	err := f.schedules.Delete(ctx, f.user, commands.DeleteScheduleCommand{ScheduleUUID: v.UUID})
	assert.Equal(t, instoo_errors.CodeAdminOnly, codeOf(err))

	require.NoError(t, f.schedules.Delete(ctx, f.admin, commands.DeleteScheduleCommand{ScheduleUUID: v.UUID}))

	_, err = f.schedules.Get(ctx, v.UUID)
	assert.Equal(t, instoo_errors.CodeScheduleNotFound, codeOf(err))

	err = f.schedules.Delete(ctx, f.admin, commands.DeleteScheduleCommand{ScheduleUUID: v.UUID})
	assert.Equal(t, instoo_errors.CodeScheduleNotFound, codeOf(err))

	history, err := f.schedules.History(ctx, v.UUID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	deleted := history[1]
	assert.Equal(t, domain.HistoryActionDelete, deleted.Action)
	require.NotNil(t, deleted.CurrentSnapshot)
	assert.NotNil(t, deleted.CurrentSnapshot.DeletedAt)
	assert.Equal(t, 2, deleted.CurrentSnapshot.Version)

	// the day frees up once the schedule is gone
	f.create(t, draft(f.verified, "2025-03-10", schedule.StatusBreak, nil))
}

func TestScheduleService_GetUsesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusTimeTBD, nil))

	_, err := f.schedules.Get(ctx, v.UUID)
	require.NoError(t, err)
	cached, _, ok, _ := f.cache.Get(ctx, v.UUID)
	require.True(t, ok)
	assert.Equal(t, v.UUID, cached.UUID)

	_, err = f.schedules.Get(ctx, uuid.New())
	assert.Equal(t, instoo_errors.CodeScheduleNotFound, codeOf(err))

	_, err = f.schedules.History(ctx, uuid.New())
	assert.Equal(t, instoo_errors.CodeHistoryNotFound, codeOf(err))
}

func TestScheduleService_CacheFillLosesToConcurrentUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.create(t, draft(f.verified, "2025-03-10", schedule.StatusTimeTBD, nil))

	// the write commits and invalidates between the reader's miss and its fill
	title := "Renamed"
	var written schedule.View
	f.cache.beforeSet = func() {
		var err error
		written, err = f.schedules.Update(ctx, f.other, commands.UpdateScheduleCommand{
			ScheduleUUID:      v.UUID,
			ExpectedUpdatedAt: v.UpdatedAt,
			Patch:             schedule.Patch{Title: &title},
		})
		require.NoError(t, err)
	}

	stale, err := f.schedules.Get(ctx, v.UUID)
	require.NoError(t, err)
	assert.Equal(t, 1, stale.Version)

	_, _, cached, _ := f.cache.Get(ctx, v.UUID)
	assert.False(t, cached, "stale view must not be cached")

	fresh, err := f.schedules.Get(ctx, v.UUID)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Version)
	assert.True(t, fresh.UpdatedAt.Equal(written.UpdatedAt))

	again := "Renamed twice"
	_, err = f.schedules.Update(ctx, f.user, commands.UpdateScheduleCommand{
		ScheduleUUID:      v.UUID,
		ExpectedUpdatedAt: fresh.UpdatedAt,
		Patch:             schedule.Patch{Title: &again},
	})
	require.NoError(t, err)
}

func TestScheduleService_ListPagesWithoutGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	second := f.addStreamer(t, "Byeol", true)
	third := f.addStreamer(t, "Sora", true)

	f.create(t, draft(f.verified, "2025-03-10", schedule.StatusScheduled, at("2025-03-10T11:00:00Z")))
	f.create(t, draft(second, "2025-03-10", schedule.StatusBreak, nil))
	f.create(t, draft(third, "2025-03-10", schedule.StatusTimeTBD, nil))
	f.create(t, draft(f.verified, "2025-03-11", schedule.StatusTimeTBD, nil))
	f.create(t, draft(second, "2025-03-11", schedule.StatusScheduled, at("2025-03-11T01:00:00Z")))
	f.create(t, draft(third, "2025-03-12", schedule.StatusBreak, nil))
	f.create(t, draft(f.verified, "2025-03-12", schedule.StatusScheduled, at("2025-03-12T09:00:00Z")))

	for _, order := range []domain.SortOrder{domain.SortAsc, domain.SortDesc} {
		all, err := f.schedules.List(ctx, schedule.ListQuery{Order: order, Limit: schedule.MaxPageSize})
		require.NoError(t, err)
		require.Len(t, all.Items, 7)
		assert.False(t, all.HasMore)

		var paged []uuid.UUID
		q := schedule.ListQuery{Order: order, Limit: 2}
		for {
			page, err := f.schedules.List(ctx, q)
			require.NoError(t, err)
			for _, item := range page.Items {
				paged = append(paged, item.UUID)
			}
			if !page.HasMore {
				break
			}
			q.Cursor = page.Next
		}

		var want []uuid.UUID
		for _, item := range all.Items {
			want = append(want, item.UUID)
		}
		assert.Equal(t, want, paged, "order %s", order)
	}

	first, err := f.schedules.List(ctx, schedule.ListQuery{DateFrom: "2025-03-10", DateTo: "2025-03-10"})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	assert.Equal(t, schedule.StatusBreak, first.Items[0].Status)
	assert.Equal(t, schedule.StatusTimeTBD, first.Items[1].Status)
	assert.Equal(t, schedule.StatusScheduled, first.Items[2].Status)

	_, err = f.schedules.List(ctx, schedule.ListQuery{Title: "e"})
	assert.Equal(t, instoo_errors.CodeSearchTermTooShort, codeOf(err))
}
