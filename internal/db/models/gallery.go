package models

import "time"

// GalleryImage represents an image in a project's gallery. S3ID is
// "{sha1}.{format}" where format comes from magic-number sniffing, so the
// same dedup-by-content rules apply as for version files.
type GalleryImage struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Ordering    int       `json:"ordering"`
	S3ID        string    `json:"s3_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// PublicGalleryImage is the outward shape of a gallery image, with the
// download URL resolved from the blob key.
type PublicGalleryImage struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Ordering    int       `json:"ordering"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// Public converts the stored row into its outward shape.
func (g GalleryImage) Public() PublicGalleryImage {
	return PublicGalleryImage{
		ID:          g.ID,
		ProjectID:   g.ProjectID,
		Name:        g.Name,
		Description: g.Description,
		Ordering:    g.Ordering,
		URL:         "/api/v1/projects/gallery/file/" + g.S3ID,
		CreatedAt:   g.CreatedAt,
	}
}
