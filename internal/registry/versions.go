// versions.go implements version upload, download, and deletion. Uploads are
// where content addressing happens: the artifact's SHA-1 becomes both its
// integrity fingerprint and its blob key, so identical bytes uploaded to any
// number of versions occupy one physical blob.
package registry

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/events"
	"github.com/modvault/modvault/internal/storage"
	"github.com/modvault/modvault/internal/telemetry"
	"github.com/modvault/modvault/internal/validation"
	"github.com/modvault/modvault/pkg/checksum"
)

// UploadVersionInput carries a version upload request
type UploadVersionInput struct {
	Name          string
	VersionNumber string
	Changelog     *string
	Loaders       []string
	GameVersions  []string
	FileName      string
	Data          []byte
}

// UploadVersion publishes a new version of a project with one artifact.
//
// Write order: blob first (skipped when the key already exists — that is the
// dedup), then version row, then file row, then the search upsert. A failure
// after the blob write leaves at worst an unreferenced blob, never a row
// pointing at missing bytes.
func (r *Registry) UploadVersion(ctx context.Context, actor *models.User, projectRef string, input UploadVersionInput) (*models.ProjectVersionData, error) {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.VersionNumber) == "" || strings.TrimSpace(input.FileName) == "" {
		return nil, fmt.Errorf("%w: name, version_number, and file_name are required", ErrMissingField)
	}
	if len(input.Loaders) == 0 || len(input.GameVersions) == 0 {
		return nil, fmt.Errorf("%w: loaders and game_versions are required", ErrMissingField)
	}
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if err := validation.ValidateSemver(input.VersionNumber); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSemver, input.VersionNumber)
	}
	if !r.verifier.Verify(input.Data) {
		return nil, ErrVerificationFailed
	}

	sha1 := checksum.SHA1Hex(input.Data)

	exists, err := r.store.Exists(ctx, storage.BucketProjects, sha1)
	if err != nil {
		return nil, fmt.Errorf("failed to check blob store: %w", err)
	}
	if !exists {
		if err := r.store.Put(ctx, storage.BucketProjects, sha1, bytes.NewReader(input.Data), int64(len(input.Data))); err != nil {
			telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketProjects), "put", "error").Inc()
			return nil, fmt.Errorf("failed to store artifact: %w", err)
		}
		telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketProjects), "put", "ok").Inc()
	}

	version := &models.ProjectVersion{
		ProjectID:     project.ID,
		Name:          input.Name,
		VersionNumber: input.VersionNumber,
		Changelog:     input.Changelog,
		Loaders:       input.Loaders,
		GameVersions:  input.GameVersions,
	}
	if err := r.versions.Create(ctx, version); err != nil {
		return nil, err
	}

	file := &models.ProjectFile{
		VersionID: version.ID,
		FileName:  input.FileName,
		SHA1:      sha1,
		S3ID:      sha1,
		Size:      int64(len(input.Data)),
	}
	if err := r.versions.CreateFile(ctx, file); err != nil {
		return nil, err
	}

	if err := r.projects.TouchUpdatedAt(ctx, project.ID); err != nil {
		return nil, err
	}

	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("version uploaded but index sync failed: %w", err)
	}

	r.publish(events.VersionCreated, project.ID, actor, input.VersionNumber)
	return &models.ProjectVersionData{
		ProjectVersion: *version,
		Files:          []models.ProjectFile{*file},
	}, nil
}

// GetVersion resolves a version by id, name, or version number and returns
// it with its files.
func (r *Registry) GetVersion(ctx context.Context, actor *models.User, projectRef, versionRef string) (*models.ProjectVersionData, error) {
	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	version, err := r.versions.Resolve(ctx, project.ID, versionRef)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrNotFound
	}

	files, err := r.versions.ListFilesByVersion(ctx, version.ID)
	if err != nil {
		return nil, err
	}

	return &models.ProjectVersionData{ProjectVersion: *version, Files: files}, nil
}

// ListVersions returns all versions of a project with their files
func (r *Registry) ListVersions(ctx context.Context, actor *models.User, projectRef string) ([]models.ProjectVersionData, error) {
	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	versions, err := r.versions.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	out := make([]models.ProjectVersionData, 0, len(versions))
	for _, v := range versions {
		files, err := r.versions.ListFilesByVersion(ctx, v.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.ProjectVersionData{ProjectVersion: v, Files: files})
	}
	return out, nil
}

// LatestVersion returns the version with the highest version number. Every
// stored version number passed semver validation on upload, so comparison
// failures only happen against rows predating that rule; those fall back to
// publication order.
func (r *Registry) LatestVersion(ctx context.Context, actor *models.User, projectRef string) (*models.ProjectVersionData, error) {
	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	versions, err := r.versions.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNotFound
	}

	version := &versions[0]
	for i := 1; i < len(versions); i++ {
		cmp, err := validation.CompareSemver(versions[i].VersionNumber, version.VersionNumber)
		if err != nil {
			continue
		}
		if cmp > 0 {
			version = &versions[i]
		}
	}

	files, err := r.versions.ListFilesByVersion(ctx, version.ID)
	if err != nil {
		return nil, err
	}
	return &models.ProjectVersionData{ProjectVersion: *version, Files: files}, nil
}

// UpdateVersionInput carries a partial version patch
type UpdateVersionInput struct {
	Name          *string   `json:"name,omitempty"`
	VersionNumber *string   `json:"version_number,omitempty"`
	Changelog     *string   `json:"changelog,omitempty"`
	Loaders       *[]string `json:"loaders,omitempty"`
	GameVersions  *[]string `json:"game_versions,omitempty"`
}

// UpdateVersion applies a metadata patch to a version. Files are immutable;
// changing bytes means publishing a new version.
func (r *Registry) UpdateVersion(ctx context.Context, actor *models.User, projectRef, versionRef string, input UpdateVersionInput) (*models.ProjectVersion, error) {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	version, err := r.versions.Resolve(ctx, project.ID, versionRef)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, ErrNotFound
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name", ErrMissingField)
		}
		version.Name = *input.Name
	}
	if input.VersionNumber != nil {
		if err := validation.ValidateSemver(*input.VersionNumber); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSemver, *input.VersionNumber)
		}
		version.VersionNumber = *input.VersionNumber
	}
	if input.Changelog != nil {
		version.Changelog = input.Changelog
	}
	if input.Loaders != nil {
		version.Loaders = *input.Loaders
	}
	if input.GameVersions != nil {
		version.GameVersions = *input.GameVersions
	}

	if err := r.versions.Update(ctx, version); err != nil {
		return nil, err
	}

	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("version updated but index sync failed: %w", err)
	}
	return version, nil
}

// DeleteVersion removes a version. Each of its files goes through the
// refcount gate: the blob is deleted only when this version's row is the
// last reference to it anywhere.
func (r *Registry) DeleteVersion(ctx context.Context, actor *models.User, projectRef, versionRef string) error {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return err
	}

	version, err := r.versions.Resolve(ctx, project.ID, versionRef)
	if err != nil {
		return err
	}
	if version == nil {
		return ErrNotFound
	}

	files, err := r.versions.ListFilesByVersion(ctx, version.ID)
	if err != nil {
		return err
	}
	for _, f := range files {
		r.deleteBlobIfUnreferenced(ctx, storage.BucketProjects, f.S3ID, r.versions.CountFilesByBlobKey)
	}

	if err := r.versions.Delete(ctx, version.ID); err != nil {
		return err
	}

	if err := r.projects.TouchUpdatedAt(ctx, project.ID); err != nil {
		return err
	}

	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return fmt.Errorf("version deleted but index sync failed: %w", err)
	}

	r.publish(events.VersionDeleted, project.ID, actor, version.VersionNumber)
	return nil
}

// DownloadVersionFile opens a version file's blob for reading and records
// the download: version and project counters are bumped and the search
// document refreshed. The caller closes the reader.
func (r *Registry) DownloadVersionFile(ctx context.Context, actor *models.User, projectRef, versionRef, fileRef string) (io.ReadCloser, *models.ProjectFile, error) {
	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, nil, err
	}

	version, err := r.versions.Resolve(ctx, project.ID, versionRef)
	if err != nil {
		return nil, nil, err
	}
	if version == nil {
		return nil, nil, ErrNotFound
	}

	file, err := r.versions.ResolveFile(ctx, version.ID, fileRef)
	if err != nil {
		return nil, nil, err
	}
	if file == nil {
		return nil, nil, ErrNotFound
	}

	reader, err := r.store.Get(ctx, storage.BucketProjects, file.S3ID)
	if err != nil {
		telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketProjects), "get", "error").Inc()
		return nil, nil, fmt.Errorf("failed to open blob: %w", err)
	}
	telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketProjects), "get", "ok").Inc()
	telemetry.FileDownloadsTotal.WithLabelValues(project.Slug).Inc()

	if err := r.versions.IncrementDownloads(ctx, version.ID); err != nil {
		reader.Close()
		return nil, nil, err
	}
	if err := r.projects.IncrementDownloads(ctx, project.ID); err != nil {
		reader.Close()
		return nil, nil, err
	}
	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		reader.Close()
		return nil, nil, fmt.Errorf("download recorded but index sync failed: %w", err)
	}

	return reader, file, nil
}
