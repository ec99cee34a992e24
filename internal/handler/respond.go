package handler

import (
	"net/http"

	"instoo/internal/domain"
	"instoo/internal/services"
	"instoo/internal/transport/httpdto"
	instoo_errors "instoo/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError renders err with the status of its kind. Internal failures are
// attached to the context for ErrorHandler to log.
func respondError(c *gin.Context, err error) {
	status := services.HTTPStatus(err)
	typed := instoo_errors.As(err)
	if typed.Kind == instoo_errors.KindInternal {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, httpdto.NewKindErrorResponse(typed))
}

func invalidRequest(c *gin.Context, message string) {
	respondError(c, instoo_errors.Validation(instoo_errors.CodeInvalidInput, message))
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		invalidRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func actorFrom(c *gin.Context) (domain.Actor, bool) {
	actor, ok := services.ActorFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	}
	return actor, ok
}
