package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"bus_portal/internal/metrics"
)

// Metrics records request count and latency by matched route.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
