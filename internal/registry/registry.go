// Package registry is the consistency core: every mutation of project
// metadata flows through here so that the three stores involved — the
// relational database, the content-addressed blob store, and the search
// index — degrade in a known order. The database is authoritative; blobs are
// cleaned up best-effort behind it; the index follows fire-after-write and
// may briefly lag.
package registry

import (
	"context"
	"log/slog"
	"time"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/events"
	"github.com/modvault/modvault/internal/search"
	"github.com/modvault/modvault/internal/storage"
	"github.com/modvault/modvault/internal/telemetry"
)

// ProjectStore is the project persistence the registry depends on.
// Implemented by repositories.ProjectRepository.
type ProjectStore interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id int) (*models.Project, error)
	Resolve(ctx context.Context, ref string) (*models.Project, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, project *models.Project) error
	TouchUpdatedAt(ctx context.Context, id int) error
	IncrementDownloads(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
	AddAuthor(ctx context.Context, projectID, userID int) error
	RemoveAuthor(ctx context.Context, projectID, userID int) error
	ListAuthors(ctx context.Context, projectID int) ([]models.User, error)
	IsAuthor(ctx context.Context, projectID, userID int) (bool, error)
	ListByAuthor(ctx context.Context, userID int) ([]models.Project, error)
}

// VersionStore is the version and file persistence the registry depends on.
// Implemented by repositories.VersionRepository.
type VersionStore interface {
	Create(ctx context.Context, version *models.ProjectVersion) error
	Resolve(ctx context.Context, projectID int, ref string) (*models.ProjectVersion, error)
	ListByProject(ctx context.Context, projectID int) ([]models.ProjectVersion, error)
	Update(ctx context.Context, version *models.ProjectVersion) error
	IncrementDownloads(ctx context.Context, id int) error
	Delete(ctx context.Context, id int) error
	CreateFile(ctx context.Context, file *models.ProjectFile) error
	ResolveFile(ctx context.Context, versionID int, ref string) (*models.ProjectFile, error)
	ListFilesByVersion(ctx context.Context, versionID int) ([]models.ProjectFile, error)
	ListFilesByProject(ctx context.Context, projectID int) ([]models.ProjectFile, error)
	CountFilesByBlobKey(ctx context.Context, s3ID string) (int, error)
}

// GalleryStore is the gallery persistence the registry depends on.
// Implemented by repositories.GalleryRepository.
type GalleryStore interface {
	Create(ctx context.Context, image *models.GalleryImage) error
	Resolve(ctx context.Context, projectID int, ref string) (*models.GalleryImage, error)
	ListByProject(ctx context.Context, projectID int) ([]models.GalleryImage, error)
	Update(ctx context.Context, image *models.GalleryImage) error
	Delete(ctx context.Context, id int) error
	GetByBlobKey(ctx context.Context, s3ID string) (*models.GalleryImage, error)
	CountImagesByBlobKey(ctx context.Context, s3ID string) (int, error)
}

// ModerationStore is the moderation queue persistence the registry depends
// on. Implemented by repositories.ModerationRepository.
type ModerationStore interface {
	GetForProject(ctx context.Context, projectID int) (*models.ModerationQueueItem, error)
	GetOrCreateForProject(ctx context.Context, projectID int) (*models.ModerationQueueItem, error)
	SetStatus(ctx context.Context, id int, status string) error
	SetAssignee(ctx context.Context, id int, userID *int) error
	ListByStatus(ctx context.Context, status string) ([]models.ModerationQueueItem, error)
	AddComment(ctx context.Context, comment *models.ModerationComment) error
	ListComments(ctx context.Context, projectID int) ([]models.ModerationComment, error)
}

// Registry orchestrates mutations across the database, blob store, and
// search index.
type Registry struct {
	projects   ProjectStore
	versions   VersionStore
	gallery    GalleryStore
	moderation ModerationStore
	store      storage.Storage
	index      search.Indexer
	verifier   Verifier
	bus        *events.Bus
	logger     *slog.Logger
}

// New creates a registry over the given stores
func New(
	projects ProjectStore,
	versions VersionStore,
	gallery GalleryStore,
	moderation ModerationStore,
	store storage.Storage,
	index search.Indexer,
	verifier Verifier,
	bus *events.Bus,
	logger *slog.Logger,
) *Registry {
	if verifier == nil {
		verifier = AcceptAllVerifier{}
	}
	if bus == nil {
		bus = events.NewBus()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		projects:   projects,
		versions:   versions,
		gallery:    gallery,
		moderation: moderation,
		store:      store,
		index:      index,
		verifier:   verifier,
		bus:        bus,
		logger:     logger,
	}
}

// canEdit reports whether the actor may mutate the project. Authors and
// admins edit; everyone else does not.
func (r *Registry) canEdit(ctx context.Context, actor *models.User, projectID int) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.Admin {
		return true, nil
	}
	return r.projects.IsAuthor(ctx, projectID, actor.ID)
}

// canView reports whether the actor may read the project at all. Public and
// Unlisted projects are readable by anyone holding a reference to them;
// Private projects only by authors and admins.
func (r *Registry) canView(ctx context.Context, actor *models.User, project *models.Project) (bool, error) {
	if project.Visibility != models.VisibilityPrivate {
		return true, nil
	}
	return r.canEdit(ctx, actor, project.ID)
}

// resolveVisible resolves a project reference and applies read authorization.
// A project the actor may not see resolves to ErrNotFound so its existence
// leaks nothing.
func (r *Registry) resolveVisible(ctx context.Context, actor *models.User, ref string) (*models.Project, error) {
	project, err := r.projects.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, ErrNotFound
	}

	visible, err := r.canView(ctx, actor, project)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, ErrNotFound
	}
	return project, nil
}

// resolveEditable resolves a project reference and requires edit rights
func (r *Registry) resolveEditable(ctx context.Context, actor *models.User, ref string) (*models.Project, error) {
	project, err := r.resolveVisible(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	editable, err := r.canEdit(ctx, actor, project.ID)
	if err != nil {
		return nil, err
	}
	if !editable {
		return nil, ErrNotAuthorized
	}
	return project, nil
}

// deleteBlobIfUnreferenced removes a blob when the metadata row about to be
// (or just) deleted is its last reference. The count is read without a lock:
// a concurrent upload of the same bytes between the read and the delete can
// strand a fresh row without its blob. That window is accepted; re-uploading
// heals it, and the alternative (a lock across DB and blob store) couples
// the stores this layer exists to keep decoupled.
//
// Blob deletion is best-effort: failures are logged, never propagated. An
// orphaned blob is recoverable garbage, whereas failing the metadata delete
// over it would not be.
func (r *Registry) deleteBlobIfUnreferenced(
	ctx context.Context,
	bucket storage.Bucket,
	key string,
	countRefs func(context.Context, string) (int, error),
) {
	count, err := countRefs(ctx, key)
	if err != nil {
		r.logger.Warn("blob refcount read failed, leaving blob in place",
			"bucket", bucket, "key", key, "error", err)
		return
	}
	if count > 1 {
		return // Still referenced elsewhere
	}

	if err := r.store.Delete(ctx, bucket, key); err != nil {
		telemetry.BlobOperationsTotal.WithLabelValues(string(bucket), "delete", "error").Inc()
		r.logger.Warn("blob delete failed, blob orphaned",
			"bucket", bucket, "key", key, "error", err)
		return
	}
	telemetry.BlobOperationsTotal.WithLabelValues(string(bucket), "delete", "ok").Inc()
}

// deleteBlobIfUnreferencedAfterDelete is the project-deletion variant: the
// metadata rows are already cascaded away, so the blob goes only when no row
// anywhere still references it.
func (r *Registry) deleteBlobIfUnreferencedAfterDelete(
	ctx context.Context,
	bucket storage.Bucket,
	key string,
	countRefs func(context.Context, string) (int, error),
) {
	count, err := countRefs(ctx, key)
	if err != nil {
		r.logger.Warn("blob refcount read failed, leaving blob in place",
			"bucket", bucket, "key", key, "error", err)
		return
	}
	if count > 0 {
		return
	}

	if err := r.store.Delete(ctx, bucket, key); err != nil {
		telemetry.BlobOperationsTotal.WithLabelValues(string(bucket), "delete", "error").Inc()
		r.logger.Warn("blob delete failed, blob orphaned",
			"bucket", bucket, "key", key, "error", err)
		return
	}
	telemetry.BlobOperationsTotal.WithLabelValues(string(bucket), "delete", "ok").Inc()
}

// Reindex rebuilds the search index from the database. Destructive and
// admin-only; search results are partial while it runs.
func (r *Registry) Reindex(ctx context.Context, actor *models.User) error {
	if actor == nil || !actor.Admin {
		return ErrNotAuthorized
	}
	return r.index.ReindexAll(ctx)
}

func (r *Registry) publish(t events.Type, projectID int, actor *models.User, detail string) {
	evt := events.Event{Type: t, ProjectID: projectID, Detail: detail, At: time.Now()}
	if actor != nil {
		evt.ActorID = actor.ID
	}
	r.bus.Publish(evt)
}
