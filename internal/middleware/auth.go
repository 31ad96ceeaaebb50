// auth.go resolves Bearer tokens to users. Most routes are readable
// anonymously, so resolution is optional by default; handlers that mutate
// state call RequireUser themselves.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/auth"
	"github.com/modvault/modvault/internal/db/models"
)

// UserKey is the gin.Context key holding the resolved *models.User
const UserKey = "current_user"

// Authenticate resolves the Authorization header when present. No header
// means anonymous and the request proceeds; a header that is present but
// invalid is rejected so a client with a stale token notices instead of
// silently downgrading to anonymous.
func Authenticate(resolver *auth.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		user, err := resolver.ResolveHeader(c.Request.Context(), header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(UserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous callers
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// RequireUser aborts with 401 unless the request is authenticated
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}
