// errors.go maps the registry's sentinel errors onto HTTP statuses. Handlers
// never build status codes ad hoc; every error path funnels through
// respondError so the same failure always produces the same status.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modvault/modvault/internal/registry"
)

// respondError writes the HTTP response for err.
//
// Validation failures surface their message to the client; everything
// unrecognized is a 500 with a generic body, logged server-side. Note that an
// index-sync failure after a committed database write lands here as a 500
// even though the mutation stands — the client sees the error, the data is
// durable, and the index catches up on the next write or reindex.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, registry.ErrSlugTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "slug is already taken"})
	case errors.Is(err, registry.ErrNotAuthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case errors.Is(err, registry.ErrMissingField),
		errors.Is(err, registry.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, registry.ErrInvalidSemver),
		errors.Is(err, registry.ErrUnrecognizedImage),
		errors.Is(err, registry.ErrVerificationFailed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
