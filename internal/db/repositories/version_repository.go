// version_repository.go implements VersionRepository: project versions, their
// uploaded files, and the blob reference counting the deletion paths rely on.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/modvault/modvault/internal/db/models"
)

// VersionRepository handles database operations for project versions and files
type VersionRepository struct {
	db *sql.DB
}

// NewVersionRepository creates a new version repository
func NewVersionRepository(db *sql.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

const versionColumns = `id, project_id, name, version_number, changelog, loaders, game_versions, downloads, created_at`

func scanVersion(row interface{ Scan(...any) error }) (*models.ProjectVersion, error) {
	v := &models.ProjectVersion{}
	err := row.Scan(
		&v.ID, &v.ProjectID, &v.Name, &v.VersionNumber, &v.Changelog,
		pq.Array(&v.Loaders), pq.Array(&v.GameVersions),
		&v.Downloads, &v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Create inserts a new version record
func (r *VersionRepository) Create(ctx context.Context, version *models.ProjectVersion) error {
	query := `
		INSERT INTO project_versions (project_id, name, version_number, changelog, loaders, game_versions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, downloads, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		version.ProjectID,
		version.Name,
		version.VersionNumber,
		version.Changelog,
		pq.Array(version.Loaders),
		pq.Array(version.GameVersions),
	).Scan(&version.ID, &version.Downloads, &version.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}

	return nil
}

// Resolve retrieves a version of a project by numeric id, name, or version
// number. Numeric lookup wins when the reference parses as an integer; the
// textual fallbacks are case-insensitive.
func (r *VersionRepository) Resolve(ctx context.Context, projectID int, ref string) (*models.ProjectVersion, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		query := `SELECT ` + versionColumns + ` FROM project_versions WHERE project_id = $1 AND id = $2`
		v, err := scanVersion(r.db.QueryRowContext(ctx, query, projectID, id))
		if err == nil {
			return v, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to resolve version: %w", err)
		}
	}

	query := `
		SELECT ` + versionColumns + `
		FROM project_versions
		WHERE project_id = $1 AND (LOWER(name) = LOWER($2) OR LOWER(version_number) = LOWER($2))
		ORDER BY created_at DESC
		LIMIT 1
	`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, projectID, ref))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to resolve version: %w", err)
	}

	return v, nil
}

// ListByProject returns all versions of a project, newest first
func (r *VersionRepository) ListByProject(ctx context.Context, projectID int) ([]models.ProjectVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM project_versions WHERE project_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ProjectVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, *v)
	}

	return versions, rows.Err()
}

// Update patches the mutable fields of a version
func (r *VersionRepository) Update(ctx context.Context, version *models.ProjectVersion) error {
	query := `
		UPDATE project_versions
		SET name = $2, version_number = $3, changelog = $4, loaders = $5, game_versions = $6
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		version.ID,
		version.Name,
		version.VersionNumber,
		version.Changelog,
		pq.Array(version.Loaders),
		pq.Array(version.GameVersions),
	)
	if err != nil {
		return fmt.Errorf("failed to update version: %w", err)
	}

	return nil
}

// IncrementDownloads adds one to the version download counter.
func (r *VersionRepository) IncrementDownloads(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE project_versions SET downloads = downloads + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment version downloads: %w", err)
	}
	return nil
}

// Delete removes a version row; its file rows cascade. Blob cleanup happens
// before this, driven by CountFilesByBlobKey.
func (r *VersionRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM project_versions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete version: %w", err)
	}
	return nil
}

// CreateFile inserts a file record for a version
func (r *VersionRepository) CreateFile(ctx context.Context, file *models.ProjectFile) error {
	query := `
		INSERT INTO project_files (version_id, file_name, sha1, s3_id, size)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		file.VersionID,
		file.FileName,
		file.SHA1,
		file.S3ID,
		file.Size,
	).Scan(&file.ID, &file.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

// ResolveFile retrieves a file of a version by numeric id or file name
// (case-insensitive).
func (r *VersionRepository) ResolveFile(ctx context.Context, versionID int, ref string) (*models.ProjectFile, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		f, err := r.fileBy(ctx,
			`SELECT id, version_id, file_name, sha1, s3_id, size, created_at
			 FROM project_files WHERE version_id = $1 AND id = $2`, versionID, id)
		if err != nil || f != nil {
			return f, err
		}
	}

	return r.fileBy(ctx,
		`SELECT id, version_id, file_name, sha1, s3_id, size, created_at
		 FROM project_files WHERE version_id = $1 AND LOWER(file_name) = LOWER($2)
		 ORDER BY created_at DESC LIMIT 1`, versionID, ref)
}

func (r *VersionRepository) fileBy(ctx context.Context, query string, args ...any) (*models.ProjectFile, error) {
	f := &models.ProjectFile{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&f.ID, &f.VersionID, &f.FileName, &f.SHA1, &f.S3ID, &f.Size, &f.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// ListFilesByVersion returns the files belonging to a version
func (r *VersionRepository) ListFilesByVersion(ctx context.Context, versionID int) ([]models.ProjectFile, error) {
	query := `
		SELECT id, version_id, file_name, sha1, s3_id, size, created_at
		FROM project_files
		WHERE version_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// ListFilesByProject returns every file across all versions of a project.
// Used by project deletion to walk blobs before the cascade removes the rows.
func (r *VersionRepository) ListFilesByProject(ctx context.Context, projectID int) ([]models.ProjectFile, error) {
	query := `
		SELECT f.id, f.version_id, f.file_name, f.sha1, f.s3_id, f.size, f.created_at
		FROM project_files f
		JOIN project_versions v ON v.id = f.version_id
		WHERE v.project_id = $1
		ORDER BY f.id
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

func collectFiles(rows *sql.Rows) ([]models.ProjectFile, error) {
	var files []models.ProjectFile
	for rows.Next() {
		var f models.ProjectFile
		if err := rows.Scan(&f.ID, &f.VersionID, &f.FileName, &f.SHA1, &f.S3ID, &f.Size, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// CountFilesByBlobKey returns how many file rows reference a blob key. The
// deletion paths use this as the reference count: the blob is physically
// removed only when the row being deleted is the last reference.
func (r *VersionRepository) CountFilesByBlobKey(ctx context.Context, s3ID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_files WHERE s3_id = $1`, s3ID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count blob references: %w", err)
	}
	return count, nil
}
