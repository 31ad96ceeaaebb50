// Package api wires together all HTTP routes for the registry.
//
// Route grouping philosophy:
//   - Reads (projects, versions, gallery, search, users) are public. A token,
//     when presented, widens what the caller can see (own Private projects)
//     but is never required to browse.
//   - Mutations require authentication; per-project authorization (author vs
//     admin vs moderator) is enforced in the registry layer, not here.
//   - Blob-serving routes stream straight from the blob store and stay inside
//     the same visibility rules via the registry.
package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/modvault/modvault/internal/auth"
	"github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/middleware"
)

// NewRouter creates and configures the Gin router. rdb may be nil, which
// disables rate limiting regardless of configuration.
func NewRouter(cfg *config.Config, h *Handlers, resolver *auth.Resolver, rdb *redis.Client, db *sql.DB) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())
	router.Use(requestLogger())
	if cfg.Telemetry.MetricsEnabled {
		router.Use(middleware.Metrics())
	}
	if cfg.Security.RateLimiting.Enabled && rdb != nil {
		router.Use(middleware.RateLimit(rdb, cfg.Security.RateLimiting))
	}
	router.Use(middleware.Authenticate(resolver))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/version", versionHandler())

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/search", h.Search)

		apiV1.POST("/users", h.CreateUser)
		apiV1.GET("/users/:user", h.GetUser)
		apiV1.GET("/users/:user/projects", h.ListUserProjects)

		authGroup := apiV1.Group("/auth", middleware.RequireUser())
		{
			authGroup.GET("/me", h.Me)
			authGroup.POST("/tokens", h.IssueToken)
			authGroup.DELETE("/tokens", h.RevokeToken)
			authGroup.POST("/sessions", h.CreateSession)
		}

		// Gallery blobs are served from a static prefix so the URL embedded
		// in gallery responses never collides with a project slug.
		apiV1.GET("/projects/gallery/file/:key", h.ServeGalleryFile)

		projects := apiV1.Group("/projects")
		{
			projects.POST("", middleware.RequireUser(), h.CreateProject)
			projects.GET("/:project", h.GetProject)
			projects.PATCH("/:project", middleware.RequireUser(), h.UpdateProject)
			projects.DELETE("/:project", middleware.RequireUser(), h.DeleteProject)

			projects.POST("/:project/authors/:user", middleware.RequireUser(), h.AddAuthor)
			projects.DELETE("/:project/authors/:user", middleware.RequireUser(), h.RemoveAuthor)

			projects.POST("/:project/versions", middleware.RequireUser(), h.UploadVersion)
			projects.GET("/:project/versions", h.ListVersions)
			projects.GET("/:project/versions/latest", h.LatestVersion)
			projects.GET("/:project/versions/:version", h.GetVersion)
			projects.PATCH("/:project/versions/:version", middleware.RequireUser(), h.UpdateVersion)
			projects.DELETE("/:project/versions/:version", middleware.RequireUser(), h.DeleteVersion)
			projects.GET("/:project/versions/:version/files/:file/download", h.DownloadVersionFile)

			projects.POST("/:project/gallery", middleware.RequireUser(), h.UploadGalleryImage)
			projects.GET("/:project/gallery", h.ListGallery)
			projects.PATCH("/:project/gallery/:image", middleware.RequireUser(), h.UpdateGalleryImage)
			projects.DELETE("/:project/gallery/:image", middleware.RequireUser(), h.DeleteGalleryImage)

			moderation := projects.Group("/:project/moderation", middleware.RequireUser())
			{
				moderation.GET("", h.GetModerationItem)
				moderation.POST("/status", h.SetModerationStatus)
				moderation.POST("/assign", h.AssignModerator)
				moderation.GET("/comments", h.ListModerationComments)
				moderation.POST("/comments", h.AddModerationComment)
			}
		}

		apiV1.GET("/moderation/queue", middleware.RequireUser(), h.ListModerationQueue)
		apiV1.POST("/admin/reindex", middleware.RequireUser(), h.Reindex)
	}

	return router
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy"
// @Router       /health [get]
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /version [get]
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// requestLogger emits one structured record per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
		)
	}
}
