package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/domain/streamer"
	"instoo/internal/events"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string { return &v }

func TestStreamerService_CreateRejectsDuplicateOnPlatform(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chzzk := streamer.Platform{PlatformName: "chzzk", ChannelURL: "https://chzzk.naver.com/haneul"}

	_, err := f.streamers.Create(ctx, f.user, commands.CreateStreamerCommand{Name: "Haneul", Platforms: []streamer.Platform{chzzk}})
	require.NoError(t, err)

	_, err = f.streamers.Create(ctx, f.other, commands.CreateStreamerCommand{Name: " Haneul ", Platforms: []streamer.Platform{
		{PlatformName: "youtube", ChannelURL: "https://youtube.com/@haneul"},
		chzzk,
	}})
	assert.Equal(t, instoo_errors.CodeDuplicateStreamer, codeOf(err))
	assert.Equal(t, 409, HTTPStatus(err))

	_, err = f.streamers.Create(ctx, f.other, commands.CreateStreamerCommand{Name: "Haneul", Platforms: []streamer.Platform{
		{PlatformName: "youtube", ChannelURL: "https://youtube.com/@haneul"},
	}})
	assert.NoError(t, err)
}

func TestStreamerService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	current, err := f.streamers.Get(ctx, f.unverified)
	require.NoError(t, err)

	updated, err := f.streamers.Update(ctx, f.user, commands.UpdateStreamerCommand{
		StreamerUUID:      f.unverified,
		ExpectedUpdatedAt: current.UpdatedAt,
		Patch:             streamer.Patch{Name: strPtr(" Dami Live "), Description: strPtr("weekday nights")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dami Live", updated.Name)
	assert.Equal(t, "weekday nights", updated.Description.String)
	assert.True(t, updated.UpdatedAt.After(current.UpdatedAt))
	assert.Equal(t, f.user.ID, updated.UpdatedBy)

	t.Run("StaleToken", func(t *testing.T) {
		_, err := f.streamers.Update(ctx, f.other, commands.UpdateStreamerCommand{
			StreamerUUID:      f.unverified,
			ExpectedUpdatedAt: current.UpdatedAt,
			Patch:             streamer.Patch{Name: strPtr("Someone else")},
		})
		assert.Equal(t, instoo_errors.CodeConflictModified, codeOf(err))
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ConflictCounter.WithLabelValues("streamer_update")))

		stored, err := f.streamers.Get(ctx, f.unverified)
		require.NoError(t, err)
		assert.Equal(t, "Dami Live", stored.Name)
	})

	t.Run("RenameOntoTakenName", func(t *testing.T) {
		_, err := f.streamers.Update(ctx, f.user, commands.UpdateStreamerCommand{
			StreamerUUID:      f.unverified,
			ExpectedUpdatedAt: updated.UpdatedAt,
			Patch:             streamer.Patch{Name: strPtr("Hanul")},
		})
		assert.Equal(t, instoo_errors.CodeDuplicateStreamer, codeOf(err))
	})

	t.Run("ClearsOptionalFields", func(t *testing.T) {
		next, err := f.streamers.Update(ctx, f.user, commands.UpdateStreamerCommand{
			StreamerUUID:      f.unverified,
			ExpectedUpdatedAt: updated.UpdatedAt,
			Patch:             streamer.Patch{Description: strPtr("  ")},
		})
		require.NoError(t, err)
		assert.False(t, next.Description.Valid)
		assert.Equal(t, "Dami Live", next.Name)
	})

	t.Run("InvalidCommands", func(t *testing.T) {
		_, err := f.streamers.Update(ctx, f.user, commands.UpdateStreamerCommand{StreamerUUID: f.unverified, ExpectedUpdatedAt: fixtureNow})
		assert.Equal(t, instoo_errors.KindValidation, instoo_errors.KindOf(err))

		_, err = f.streamers.Update(ctx, f.user, commands.UpdateStreamerCommand{StreamerUUID: f.unverified, Patch: streamer.Patch{Name: strPtr("x")}})
		assert.Equal(t, instoo_errors.KindValidation, instoo_errors.KindOf(err))

		_, err = f.streamers.Update(ctx, f.user, commands.UpdateStreamerCommand{
			StreamerUUID:      uuid.New(),
			ExpectedUpdatedAt: fixtureNow,
			Patch:             streamer.Patch{Name: strPtr("Ghost")},
		})
		assert.Equal(t, instoo_errors.CodeStreamerNotFound, codeOf(err))
	})

	var types []string
	for _, e := range f.store.peek().outbox {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{events.EventTypeStreamerUpdated, events.EventTypeStreamerUpdated}, types)
}

func TestStreamerService_Delete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, draft(f.verified, "2025-03-12", schedule.StatusBreak, nil))

	err := f.streamers.Delete(ctx, f.user, commands.DeleteStreamerCommand{StreamerUUID: f.verified})
	assert.Equal(t, instoo_errors.CodeAdminOnly, codeOf(err))

	require.NoError(t, f.streamers.Delete(ctx, f.admin, commands.DeleteStreamerCommand{StreamerUUID: f.verified}))

	_, err = f.streamers.Get(ctx, f.verified)
	assert.Equal(t, instoo_errors.CodeStreamerNotFound, codeOf(err))

	err = f.streamers.Delete(ctx, f.admin, commands.DeleteStreamerCommand{StreamerUUID: f.verified})
	assert.Equal(t, instoo_errors.CodeStreamerNotFound, codeOf(err))

	page, err := f.schedules.List(ctx, schedule.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	state := f.store.peek()
	assert.False(t, state.streamers[f.verified].IsActive)
	assert.Equal(t, f.admin.ID, state.streamers[f.verified].UpdatedBy)
	last := state.outbox[len(state.outbox)-1]
	assert.Equal(t, events.EventTypeStreamerDeleted, last.EventType)
	assert.Equal(t, f.verified.String(), last.AggregateID)
}

func TestStreamerService_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 18; i++ {
		id := f.addStreamer(t, fmt.Sprintf("Extra %02d", i), i%2 == 0)
		st := f.store.db.state.streamers[id]
		st.FollowCount = int64(i)
		st.CreatedAt = fixtureNow.Add(time.Duration(i) * time.Minute)
		if i < 3 {
			st.Platforms = []streamer.Platform{{PlatformName: "soop", ChannelURL: "https://sooplive.co.kr/extra"}}
		}
		f.store.db.state.streamers[id] = st
	}

	t.Run("DefaultsToNewestFirst", func(t *testing.T) {
		page, err := f.streamers.List(ctx, streamer.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Page)
		assert.Equal(t, streamer.DefaultPageSize, page.Size)
		assert.Equal(t, int64(20), page.TotalCount)
		require.Len(t, page.Items, 15)
		assert.Equal(t, "Extra 17", page.Items[0].Name)

		second, err := f.streamers.List(ctx, streamer.ListQuery{Page: 2})
		require.NoError(t, err)
		assert.Len(t, second.Items, 5)
	})

	t.Run("Filters", func(t *testing.T) {
		verified := true
		page, err := f.streamers.List(ctx, streamer.ListQuery{IsVerified: &verified, Platforms: []string{"soop", " "}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.TotalCount)
		for _, st := range page.Items {
			assert.True(t, st.IsVerified)
		}

		page, err = f.streamers.List(ctx, streamer.ListQuery{Name: "extra 1"})
		require.NoError(t, err)
		assert.Equal(t, int64(8), page.TotalCount)
	})

	t.Run("SortsByFollowCount", func(t *testing.T) {
		page, err := f.streamers.List(ctx, streamer.ListQuery{SortBy: streamer.SortByFollowCount, Order: domain.SortAsc, Size: 20})
		require.NoError(t, err)
		require.Len(t, page.Items, 20)
		for i := 1; i < len(page.Items); i++ {
			assert.LessOrEqual(t, page.Items[i-1].FollowCount, page.Items[i].FollowCount)
		}
	})

	t.Run("RejectsBadQueries", func(t *testing.T) {
		_, err := f.streamers.List(ctx, streamer.ListQuery{Size: 10})
		assert.Equal(t, instoo_errors.KindValidation, instoo_errors.KindOf(err))

		_, err = f.streamers.List(ctx, streamer.ListQuery{SortBy: "name"})
		assert.Equal(t, instoo_errors.KindValidation, instoo_errors.KindOf(err))

		_, err = f.streamers.List(ctx, streamer.ListQuery{Name: "e"})
		assert.Equal(t, instoo_errors.CodeSearchTermTooShort, codeOf(err))
	})
}
