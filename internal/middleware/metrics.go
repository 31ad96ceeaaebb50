// metrics.go records per-request Prometheus metrics.
package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/telemetry"
)

// Metrics records http_requests_total{method,path,status} and
// http_request_duration_seconds{method,path} for every request. The path
// label uses the matched route template from c.FullPath(), not the raw URL;
// unmatched requests get "<no-route>" so 404 scans do not explode label
// cardinality.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}

		method := c.Request.Method
		status := fmt.Sprintf("%d", c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
