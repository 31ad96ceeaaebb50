// Package search owns everything between the registry and the Typesense
// engine: the collection schema, the document projection, facet and sort
// translation, and the index synchronizer. The index is a derived view of
// the database and can always be rebuilt from it; nothing in here is a
// source of truth.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/modvault/modvault/internal/config"
)

// Client wraps the Typesense client with the projects collection
type Client struct {
	ts         *typesense.Client
	collection string
}

// NewClient creates a search client from configuration
func NewClient(cfg *config.SearchConfig) *Client {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithNumRetries(3),
	)

	return &Client{
		ts:         client,
		collection: cfg.Collection,
	}
}

func projectSchema(name string) *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: name,
		Fields: []api.Field{
			{Name: "slug", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "description", Type: "string"},
			{Name: "readme", Type: "string"},
			{Name: "tags", Type: "string[]", Facet: pointer.True()},
			{Name: "loaders", Type: "string[]", Facet: pointer.True()},
			{Name: "game_versions", Type: "string[]", Facet: pointer.True()},
			{Name: "authors", Type: "string[]", Facet: pointer.True()},
			{Name: "author_ids", Type: "int64[]"},
			{Name: "versions", Type: "string[]"},
			{Name: "version_ids", Type: "int64[]"},
			{Name: "visibility", Type: "string", Facet: pointer.True()},
			{Name: "downloads", Type: "int64"},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("downloads"),
	}
}

// EnsureCollection creates the projects collection if it does not exist yet
func (c *Client) EnsureCollection(ctx context.Context) error {
	_, err := c.ts.Collections().Create(ctx, projectSchema(c.collection))
	if err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusConflict {
			return nil // Already exists
		}
		return fmt.Errorf("failed to create search collection: %w", err)
	}
	return nil
}

// RecreateCollection drops and recreates the collection. Every document is
// lost; the caller is expected to rewrite them immediately.
func (c *Client) RecreateCollection(ctx context.Context) error {
	_, err := c.ts.Collection(c.collection).Delete(ctx)
	if err != nil {
		var httpErr *typesense.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Status != http.StatusNotFound {
			return fmt.Errorf("failed to drop search collection: %w", err)
		}
	}

	if _, err := c.ts.Collections().Create(ctx, projectSchema(c.collection)); err != nil {
		return fmt.Errorf("failed to create search collection: %w", err)
	}
	return nil
}
