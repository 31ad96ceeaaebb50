// ratelimit.go enforces per-client request limits, returning 429 when a
// client exceeds its budget. The limiter state lives in Redis (GCRA via
// redis_rate) so the limit holds across multiple instances; when Redis is
// unreachable the request is allowed through — rate limiting degrades open,
// it is not an availability dependency.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/telemetry"
)

// RateLimit limits requests per client key. Authenticated requests are keyed
// by the Authorization header (so one user behind a NAT does not exhaust the
// budget of everyone else behind it); anonymous requests fall back to client
// IP.
func RateLimit(rdb *redis.Client, cfg config.RateLimitingConfig) gin.HandlerFunc {
	limiter := redis_rate.NewLimiter(rdb)
	limit := redis_rate.PerMinute(cfg.RequestsPerMinute)
	if cfg.Burst > 0 {
		limit.Burst = cfg.Burst
	}

	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			key = c.ClientIP()
		}

		res, err := limiter.Allow(c.Request.Context(), "ratelimit:"+key, limit)
		if err != nil {
			// Redis down: let the request through rather than failing closed
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

		if res.Allowed == 0 {
			telemetry.RateLimitedTotal.Inc()
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}
