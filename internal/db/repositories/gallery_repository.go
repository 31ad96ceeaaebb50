// gallery_repository.go implements GalleryRepository for project gallery
// images. Gallery blobs live in their own bucket and use "{sha1}.{format}"
// keys, so reference counting is scoped to gallery rows only.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/modvault/modvault/internal/db/models"
)

// GalleryRepository handles database operations for gallery images
type GalleryRepository struct {
	db *sql.DB
}

// NewGalleryRepository creates a new gallery repository
func NewGalleryRepository(db *sql.DB) *GalleryRepository {
	return &GalleryRepository{db: db}
}

const galleryColumns = `id, project_id, name, description, ordering, s3_id, created_at`

func scanGalleryImage(row interface{ Scan(...any) error }) (*models.GalleryImage, error) {
	g := &models.GalleryImage{}
	err := row.Scan(&g.ID, &g.ProjectID, &g.Name, &g.Description, &g.Ordering, &g.S3ID, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Create inserts a new gallery image record
func (r *GalleryRepository) Create(ctx context.Context, image *models.GalleryImage) error {
	query := `
		INSERT INTO gallery_images (project_id, name, description, ordering, s3_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		image.ProjectID,
		image.Name,
		image.Description,
		image.Ordering,
		image.S3ID,
	).Scan(&image.ID, &image.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create gallery image: %w", err)
	}

	return nil
}

// Resolve retrieves a gallery image of a project by numeric id or name
// (case-insensitive).
func (r *GalleryRepository) Resolve(ctx context.Context, projectID int, ref string) (*models.GalleryImage, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		query := `SELECT ` + galleryColumns + ` FROM gallery_images WHERE project_id = $1 AND id = $2`
		g, err := scanGalleryImage(r.db.QueryRowContext(ctx, query, projectID, id))
		if err == nil {
			return g, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to resolve gallery image: %w", err)
		}
	}

	query := `
		SELECT ` + galleryColumns + `
		FROM gallery_images
		WHERE project_id = $1 AND LOWER(name) = LOWER($2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	g, err := scanGalleryImage(r.db.QueryRowContext(ctx, query, projectID, ref))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to resolve gallery image: %w", err)
	}

	return g, nil
}

// ListByProject returns a project's gallery ordered by the explicit ordering
// field, then id for a stable tiebreak.
func (r *GalleryRepository) ListByProject(ctx context.Context, projectID int) ([]models.GalleryImage, error) {
	query := `SELECT ` + galleryColumns + ` FROM gallery_images WHERE project_id = $1 ORDER BY ordering, id`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gallery images: %w", err)
	}
	defer rows.Close()

	var images []models.GalleryImage
	for rows.Next() {
		g, err := scanGalleryImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gallery image: %w", err)
		}
		images = append(images, *g)
	}

	return images, rows.Err()
}

// Update patches a gallery image's metadata. The blob key never changes
// through update; re-uploading different bytes is a delete plus create.
func (r *GalleryRepository) Update(ctx context.Context, image *models.GalleryImage) error {
	query := `
		UPDATE gallery_images
		SET name = $2, description = $3, ordering = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, image.ID, image.Name, image.Description, image.Ordering)
	if err != nil {
		return fmt.Errorf("failed to update gallery image: %w", err)
	}

	return nil
}

// Delete removes a gallery image row
func (r *GalleryRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM gallery_images WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete gallery image: %w", err)
	}
	return nil
}

// GetByBlobKey retrieves any gallery image stored under the blob key. Serving
// a gallery file only needs the key to exist somewhere in the table.
func (r *GalleryRepository) GetByBlobKey(ctx context.Context, s3ID string) (*models.GalleryImage, error) {
	query := `SELECT ` + galleryColumns + ` FROM gallery_images WHERE s3_id = $1 LIMIT 1`

	g, err := scanGalleryImage(r.db.QueryRowContext(ctx, query, s3ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get gallery image by blob key: %w", err)
	}

	return g, nil
}

// CountImagesByBlobKey returns how many gallery rows reference a blob key,
// the reference count consulted before physical deletion.
func (r *GalleryRepository) CountImagesByBlobKey(ctx context.Context, s3ID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM gallery_images WHERE s3_id = $1`, s3ID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count blob references: %w", err)
	}
	return count, nil
}
