package services

import (
	"context"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"instoo/internal/clock"
	"instoo/internal/commands"
	"instoo/internal/domain"
	"instoo/internal/domain/schedule"
	"instoo/internal/domain/streamer"
	"instoo/internal/domain/user"
	"instoo/internal/metrics"
	"instoo/internal/proxy"
	instoo_errors "instoo/pkg/errors"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// 12:00 in Seoul on 2025-03-10.
var fixtureNow = time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)

type fixture struct {
	store     *memStore
	clock     *clock.Reference
	metrics   *metrics.Metrics
	cache     *memCache
	schedules *ScheduleService
	likes     *LikeService
	follows   *FollowService
	streamers *StreamerService
	users     *UserService

	user       domain.Actor
	other      domain.Actor
	admin      domain.Actor
	verified   uuid.UUID
	unverified uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)

	f := &fixture{
		store:   newMemStore(),
		clock:   clock.Fixed(fixtureNow, loc),
		metrics: metrics.New(prometheus.NewRegistry()),
		cache:   newMemCache(),
		user:    domain.Actor{ID: uuid.New(), Role: domain.RoleUser},
		other:   domain.Actor{ID: uuid.New(), Role: domain.RoleUser},
		admin:   domain.Actor{ID: uuid.New(), Role: domain.RoleAdmin},
	}
	publisher := NewEventPublisher(true)
	access := proxy.NewAccessControl()
	f.schedules = NewScheduleService(f.store, f.clock, access, publisher, f.cache, f.metrics)
	f.likes = NewLikeService(f.store, f.clock, publisher, f.cache)
	f.follows = NewFollowService(f.store, f.clock, publisher)
	f.streamers = NewStreamerService(f.store, f.clock, commands.NewProxyChain(access), publisher, f.metrics)
	f.users = NewUserService(f.store, f.clock)

	ctx := context.Background()
	for i, a := range []domain.Actor{f.user, f.other, f.admin} {
		require.NoError(t, f.store.Users().Create(ctx, &user.User{
			UUID:     a.ID,
			Email:    a.ID.String() + "@example.com",
			Nickname: []string{"viewer", "lurker", "moderator"}[i],
			Role:     a.Role,
			IsActive: true,
		}))
	}
	f.verified = f.addStreamer(t, "Hanul", true)
	f.unverified = f.addStreamer(t, "Dami", false)
	return f
}

func (f *fixture) addStreamer(t *testing.T, name string, verified bool) uuid.UUID {
	t.Helper()
	st := streamer.Streamer{
		UUID:        uuid.New(),
		Name:        name,
		IsVerified:  verified,
		IsActive:    true,
		CreatedBy:   f.admin.ID,
		UpdatedBy:   f.admin.ID,
		AuditFields: domain.AuditFields{CreatedAt: fixtureNow, UpdatedAt: fixtureNow},
	}
	require.NoError(t, f.store.Streamers().Create(context.Background(), &st))
	return st.UUID
}

func (f *fixture) create(t *testing.T, d schedule.Draft) schedule.View {
	t.Helper()
	v, err := f.schedules.Create(context.Background(), f.user, commands.CreateScheduleCommand{Draft: d})
	require.NoError(t, err)
	return v
}

func draft(streamerID uuid.UUID, date string, status schedule.Status, start *time.Time) schedule.Draft {
	return schedule.Draft{StreamerUUID: streamerID, Title: "Evening stream", ScheduleDate: date, Status: status, StartTime: start}
}

func at(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func codeOf(err error) string {
	if err == nil {
		return ""
	}
	return instoo_errors.As(err).Code
}

// memCache mirrors the Redis cache, fence included. beforeSet runs once
// before the next fill, outside the lock.
type memCache struct {
	mu          sync.Mutex
	items       map[uuid.UUID]schedule.View
	fences      map[uuid.UUID]int64
	invalidated []uuid.UUID
	beforeSet   func()
}

func newMemCache() *memCache {
	return &memCache{items: map[uuid.UUID]schedule.View{}, fences: map[uuid.UUID]int64{}}
}

func (c *memCache) Get(_ context.Context, id uuid.UUID) (schedule.View, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[id]
	return v, c.fences[id], ok, nil
}

func (c *memCache) Set(_ context.Context, v schedule.View, fence int64) (bool, error) {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fences[v.UUID] != fence {
		return false, nil
	}
	c.items[v.UUID] = v
	return true, nil
}

func (c *memCache) Invalidate(_ context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.fences[id]++
	c.invalidated = append(c.invalidated, id)
	return nil
}
