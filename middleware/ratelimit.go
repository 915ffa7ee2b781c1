package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Govind-619/Tutorix/cache"
	"github.com/Govind-619/Tutorix/metrics"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

// RateLimit allows at most limit requests per caller and route within the
// counter's TTL window. Callers are keyed by user id when authenticated and
// by client IP otherwise.
func RateLimit(counter *cache.TTLCache[int], limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		caller := "ip:" + c.ClientIP()
		if userID, ok := CurrentUserID(c); ok {
			caller = fmt.Sprintf("user:%d", userID)
		}
		key := caller + "|" + c.Request.Method + " " + route

		count := counter.Update(key, func(current int, found bool) int {
			if !found {
				return 1
			}
			return current + 1
		})

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if count > limit {
			if resetAt, ok := counter.ExpiresAt(key); ok {
				retry := int(time.Until(resetAt).Seconds()) + 1
				c.Header("Retry-After", strconv.Itoa(retry))
			}
			metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			utils.LogWarn("Rate limit exceeded for %s on %s", caller, route)
			utils.TooManyRequests(c, utils.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
