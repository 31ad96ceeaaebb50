// sync.go implements the index synchronizer. Sync is fire-after-write: every
// registry mutation calls Upsert or Delete once its own database write has
// committed, and a sync failure never rolls that write back. The index is
// allowed to go stale; ReindexAll rebuilds it from scratch.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/typesense/typesense-go/v2/typesense"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/telemetry"
)

// ProjectionSource provides the database reads documents are built from.
// Implemented by repositories.ProjectRepository.
type ProjectionSource interface {
	Projection(ctx context.Context, projectID int) (*models.ProjectProjection, error)
	AllProjections(ctx context.Context) ([]models.ProjectProjection, error)
}

// Indexer is what the registry layer calls after each mutation. Split from
// the concrete synchronizer so registry tests can observe sync calls without
// a running engine.
type Indexer interface {
	UpsertProject(ctx context.Context, projectID int) error
	DeleteProject(ctx context.Context, projectID int) error
	ReindexAll(ctx context.Context) error
}

// Synchronizer keeps the index following the database
type Synchronizer struct {
	client *Client
	source ProjectionSource
}

// NewSynchronizer creates a synchronizer over the given client and source
func NewSynchronizer(client *Client, source ProjectionSource) *Synchronizer {
	return &Synchronizer{client: client, source: source}
}

// UpsertProject recomputes and writes one project's document. A project that
// no longer exists (or has no authors) is removed from the index instead.
func (s *Synchronizer) UpsertProject(ctx context.Context, projectID int) error {
	proj, err := s.source.Projection(ctx, projectID)
	if err != nil {
		telemetry.SearchSyncTotal.WithLabelValues("upsert", "error").Inc()
		return fmt.Errorf("failed to read project for indexing: %w", err)
	}
	if proj == nil {
		return s.DeleteProject(ctx, projectID)
	}

	doc := BuildDocument(*proj)
	if _, err := s.client.ts.Collection(s.client.collection).Documents().Upsert(ctx, doc); err != nil {
		telemetry.SearchSyncTotal.WithLabelValues("upsert", "error").Inc()
		return fmt.Errorf("failed to upsert search document: %w", err)
	}

	telemetry.SearchSyncTotal.WithLabelValues("upsert", "ok").Inc()
	return nil
}

// DeleteProject removes a project's document; a document that was never
// indexed is not an error.
func (s *Synchronizer) DeleteProject(ctx context.Context, projectID int) error {
	_, err := s.client.ts.Collection(s.client.collection).Document(strconv.Itoa(projectID)).Delete(ctx)
	if err != nil {
		var httpErr *typesense.HTTPError
		if !errors.As(err, &httpErr) || httpErr.Status != http.StatusNotFound {
			telemetry.SearchSyncTotal.WithLabelValues("delete", "error").Inc()
			return fmt.Errorf("failed to delete search document: %w", err)
		}
	}

	telemetry.SearchSyncTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// ReindexAll rebuilds the index from the database. Destructive: the
// collection is dropped and recreated, then one document is written per
// project that has at least one version and at least one author. Queries
// racing the rebuild see partial results.
func (s *Synchronizer) ReindexAll(ctx context.Context) error {
	if err := s.client.RecreateCollection(ctx); err != nil {
		telemetry.SearchSyncTotal.WithLabelValues("reindex", "error").Inc()
		return err
	}

	projections, err := s.source.AllProjections(ctx)
	if err != nil {
		telemetry.SearchSyncTotal.WithLabelValues("reindex", "error").Inc()
		return fmt.Errorf("failed to read projects for reindex: %w", err)
	}

	for _, proj := range projections {
		doc := BuildDocument(proj)
		if _, err := s.client.ts.Collection(s.client.collection).Documents().Upsert(ctx, doc); err != nil {
			telemetry.SearchSyncTotal.WithLabelValues("reindex", "error").Inc()
			return fmt.Errorf("failed to index project %s: %w", doc.ID, err)
		}
	}

	telemetry.SearchSyncTotal.WithLabelValues("reindex", "ok").Inc()
	return nil
}
