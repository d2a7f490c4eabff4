package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/attendly/attendly-api/internal/service"
)

// Metrics records method, route template, status and latency for every
// request. A nil service turns it into a pass-through.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		// FullPath is empty for unmatched routes; fall back to the raw
		// path so 404s still show up.
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
