package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Rate limiting key patterns:
// - ratelimit:{actor_id}:writes - fixed one-minute window per actor

type RateLimitConfig struct {
	WriteLimit  int
	WriteWindow time.Duration
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		WriteLimit:  60,
		WriteWindow: 60 * time.Second,
	}
}

type RateLimiter struct {
	client goredis.Scripter
	config RateLimitConfig
}

type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Limit     int
}

func NewRateLimiter(client goredis.Scripter, config RateLimitConfig) *RateLimiter {
	if config.WriteLimit <= 0 {
		config.WriteLimit = DefaultRateLimitConfig().WriteLimit
	}
	if config.WriteWindow <= 0 {
		config.WriteWindow = DefaultRateLimitConfig().WriteWindow
	}
	return &RateLimiter{client: client, config: config}
}

// AllowWrite counts one mutating request for the actor.
func (r *RateLimiter) AllowWrite(ctx context.Context, actorID string) (*RateLimitResult, error) {
	key := fmt.Sprintf("ratelimit:%s:writes", actorID)
	return r.checkLimit(ctx, key, r.config.WriteLimit, r.config.WriteWindow)
}

// The script increments and reads the TTL atomically.
var limitScript = goredis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = tonumber(redis.call('GET', key) or '0')
	local ttl = redis.call('TTL', key)
	if ttl < 0 then
		ttl = window
	end

	if current < limit then
		redis.call('INCR', key)
		if current == 0 then
			redis.call('EXPIRE', key, window)
		end
		return {1, limit - current - 1, ttl}
	end
	return {0, 0, ttl}
`)

func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	result, err := limitScript.Run(ctx, r.client, []string{key}, limit, int(window.Seconds())).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(result) < 3 {
		return nil, fmt.Errorf("unexpected rate limit result format")
	}

	return &RateLimitResult{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetIn:   time.Duration(result[2]) * time.Second,
		Limit:     limit,
	}, nil
}
