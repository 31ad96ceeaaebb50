// Package cache provides a best-effort Redis cache for hot read paths. Every
// operation degrades to a miss on any Redis error: the cache can disappear
// entirely and the only observable effect is extra database load.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/safego"
)

const projectListTTL = 5 * time.Minute

// Cache wraps a Redis client for project list caching
type Cache struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// New creates a cache over the given Redis client. A nil client yields a
// cache that always misses.
func New(rdb *redis.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{rdb: rdb, logger: logger}
}

func userProjectsKey(userID int) string {
	return fmt.Sprintf("user:%d:projects", userID)
}

// GetUserProjects returns the cached project list for a user, or nil on miss
func (c *Cache) GetUserProjects(ctx context.Context, userID int) []models.Project {
	if c.rdb == nil {
		return nil
	}

	raw, err := c.rdb.Get(ctx, userProjectsKey(userID)).Bytes()
	if err != nil {
		return nil // Miss or Redis unavailable, same thing
	}

	var projects []models.Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		c.logger.Warn("dropping undecodable cache entry", "key", userProjectsKey(userID), "error", err)
		return nil
	}
	return projects
}

// SetUserProjects caches a user's project list
func (c *Cache) SetUserProjects(ctx context.Context, userID int, projects []models.Project) {
	if c.rdb == nil {
		return
	}

	raw, err := json.Marshal(projects)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, userProjectsKey(userID), raw, projectListTTL).Err(); err != nil {
		c.logger.Debug("cache set failed", "key", userProjectsKey(userID), "error", err)
	}
}

// InvalidateUserProjects drops a user's cached list. Fire-and-forget: the
// call returns immediately and the delete happens off the request path, so a
// slow Redis cannot slow a mutation down. TTL bounds the staleness if the
// delete itself is lost.
func (c *Cache) InvalidateUserProjects(userID int) {
	if c.rdb == nil {
		return
	}

	safego.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.rdb.Del(ctx, userProjectsKey(userID)).Err(); err != nil {
			c.logger.Debug("cache invalidation failed", "user_id", userID, "error", err)
		}
	})
}
