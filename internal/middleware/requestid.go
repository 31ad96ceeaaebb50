// Package middleware provides the Gin middleware stack. Everything here is
// registered in internal/api/router.go ahead of the route handlers so every
// request passes through it.
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader propagates the request identifier
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key holding the request id string
	RequestIDKey = "request_id"
)

// RequestID ensures every request carries a unique identifier. An inbound
// X-Request-ID from an upstream proxy is reused; otherwise a UUID v4 is
// generated. The id is stored in the context and echoed in the response so
// clients can correlate with server-side logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}
