package middleware

import (
	"time"

	"instoo/internal/metrics"

	"github.com/gin-gonic/gin"
)

// MetricsMiddleware records request count, latency and in-flight requests
// labelled by the matched route template.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.InFlight(1)
		defer m.InFlight(-1)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
