package middleware

import (
	"strconv"
	"time"

	"github.com/Govind-619/Tutorix/metrics"
	"github.com/gin-gonic/gin"
)

// Metrics records request counts and latency per route template
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		metrics.APIRequestsTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.APIRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
