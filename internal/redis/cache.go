package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"instoo/internal/domain/schedule"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Cache key patterns:
// - schedule:{uuid}       - detail view, short TTL, dropped after every committed write
// - schedule:{uuid}:fence - invalidation count; a fill only lands if it is unchanged

const (
	DefaultScheduleTTL = 30 * time.Second
	fenceTTL           = 24 * time.Hour
)

// ScheduleCache keeps rendered schedule views in Redis.
type ScheduleCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

func NewScheduleCache(client goredis.Cmdable, ttl time.Duration) *ScheduleCache {
	if ttl <= 0 {
		ttl = DefaultScheduleTTL
	}
	return &ScheduleCache{client: client, ttl: ttl}
}

func scheduleKey(id uuid.UUID) string {
	return fmt.Sprintf("schedule:%s", id.String())
}

func fenceKey(id uuid.UUID) string {
	return fmt.Sprintf("schedule:%s:fence", id.String())
}

// Get reports ok=false on a miss. fence is the invalidation count seen with
// the lookup; hand it to Set when filling after a miss.
func (c *ScheduleCache) Get(ctx context.Context, id uuid.UUID) (schedule.View, int64, bool, error) {
	vals, err := c.client.MGet(ctx, scheduleKey(id), fenceKey(id)).Result()
	if err != nil {
		return schedule.View{}, 0, false, err
	}

	fence, err := parseFence(vals[1])
	if err != nil {
		return schedule.View{}, 0, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return schedule.View{}, fence, false, nil
	}

	var v schedule.View
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return schedule.View{}, fence, false, err
	}
	return v, fence, true, nil
}

func parseFence(val interface{}) (int64, error) {
	s, ok := val.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cache fence: %w", err)
	}
	return n, nil
}

// fillScript writes the view only while the fence still holds the value the
// reader saw, so a fill that raced an invalidation is dropped.
var fillScript = goredis.NewScript(`
	local current = tonumber(redis.call('GET', KEYS[2]) or '0')
	if current ~= tonumber(ARGV[1]) then
		return 0
	end
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
`)

// Set stores v if no invalidation happened since the Get that returned fence.
// It reports whether the view was stored.
func (c *ScheduleCache) Set(ctx context.Context, v schedule.View, fence int64) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	stored, err := fillScript.Run(ctx, c.client,
		[]string{scheduleKey(v.UUID), fenceKey(v.UUID)},
		fence, data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

var invalidateScript = goredis.NewScript(`
	redis.call('INCR', KEYS[2])
	redis.call('PEXPIRE', KEYS[2], ARGV[1])
	redis.call('DEL', KEYS[1])
	return 1
`)

// Invalidate drops the view and advances the fence, which voids fills still
// in flight from readers that looked before this call.
func (c *ScheduleCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return invalidateScript.Run(ctx, c.client,
		[]string{scheduleKey(id), fenceKey(id)},
		fenceTTL.Milliseconds(),
	).Err()
}
