package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"focus/backend/internal/metrics"
)

// Metrics records request counts and latencies labelled by route template, so
// task and surface IDs never become label values.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		metrics.RecordHTTPRequest(
			c.Request.Method,
			normalizeEndpoint(c),
			strconv.Itoa(c.Writer.Status()),
			time.Since(start),
		)
	}
}

func normalizeEndpoint(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
