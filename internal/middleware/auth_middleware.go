package middleware

import (
	"context"
	"net/http"
	"strings"

	"instoo/internal/domain"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves a bearer token to an actor.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.Actor, error)
}

func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := auth.Authenticate(c.Request.Context(), extractBearer(c))
		if err != nil {
			status := services.HTTPStatus(err)
			if status == http.StatusUnauthorized {
				c.AbortWithStatusJSON(status, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
				return
			}
			_ = c.Error(err)
			c.AbortWithStatusJSON(status, httpdto.NewErrorResponse("authentication failed", "INTERNAL"))
			return
		}

		c.Request = c.Request.WithContext(services.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
