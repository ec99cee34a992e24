package middleware

import (
	"context"
	"net/http"
	"strconv"

	"instoo/internal/redis"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"
	"instoo/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WriteLimiter is satisfied by *redis.RateLimiter.
type WriteLimiter interface {
	AllowWrite(ctx context.Context, actorID string) (*redis.RateLimitResult, error)
}

// WriteRateLimitMiddleware limits mutations per actor. It must run after
// AuthMiddleware. When Redis is unreachable the request is let through.
func WriteRateLimitMiddleware(limiter WriteLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		actor, ok := services.ActorFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		result, err := limiter.AllowWrite(c.Request.Context(), actor.ID.String())
		if err != nil {
			logger.GetGlobalLogger().Warn(c.Request.Context(), "rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("write rate limit exceeded", "RATE_LIMITED"))
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
