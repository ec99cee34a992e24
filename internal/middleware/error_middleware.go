package middleware

import (
	"instoo/internal/transport/httpdto"
	"instoo/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler logs errors attached with c.Error. Handlers render their own
// responses; a generic one is written only when nothing was.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.Error(c.Request.Context(), "request error",
				zap.String("route", c.FullPath()),
				zap.Int("status", c.Writer.Status()),
				zap.Error(err))
		}
		if !c.Writer.Written() {
			c.JSON(c.Writer.Status(), httpdto.NewErrorResponse("internal error", "INTERNAL"))
		}
	}
}
