// gallery.go implements gallery image operations. Image blobs are content
// addressed like version files, with the sniffed format appended to the key
// ("{sha1}.{format}") so serving can set a sensible content type from the
// key alone.
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
	"github.com/modvault/modvault/pkg/checksum"
	"github.com/modvault/modvault/pkg/imagesniff"
)

// UploadGalleryImageInput carries a gallery upload request
type UploadGalleryImageInput struct {
	Name        string
	Description *string
	Ordering    *int
	Data        []byte
}

// UploadGalleryImage adds an image to a project's gallery. The format is
// determined by magic-number sniffing, never by file extension or declared
// content type; unrecognized bytes are rejected before anything is written.
func (r *Registry) UploadGalleryImage(ctx context.Context, actor *models.User, projectRef string, input UploadGalleryImageInput) (*models.GalleryImage, error) {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}
	if len(input.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	format, ok := imagesniff.Detect(input.Data)
	if !ok {
		return nil, ErrUnrecognizedImage
	}

	key := checksum.SHA1Hex(input.Data) + "." + format

	exists, err := r.store.Exists(ctx, storage.BucketGallery, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check blob store: %w", err)
	}
	if !exists {
		if err := r.store.Put(ctx, storage.BucketGallery, key, bytes.NewReader(input.Data), int64(len(input.Data))); err != nil {
			telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketGallery), "put", "error").Inc()
			return nil, fmt.Errorf("failed to store image: %w", err)
		}
		telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketGallery), "put", "ok").Inc()
	}

	// New images sort last until given an explicit position
	ordering := -1
	if input.Ordering != nil {
		ordering = *input.Ordering
	}

	image := &models.GalleryImage{
		ProjectID:   project.ID,
		Name:        input.Name,
		Description: input.Description,
		Ordering:    ordering,
		S3ID:        key,
	}
	if err := r.gallery.Create(ctx, image); err != nil {
		return nil, err
	}

	if err := r.projects.TouchUpdatedAt(ctx, project.ID); err != nil {
		return nil, err
	}
	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("image uploaded but index sync failed: %w", err)
	}

	r.publish(events.GalleryUpdated, project.ID, actor, image.Name)
	return image, nil
}

// ListGallery returns a project's gallery in display order
func (r *Registry) ListGallery(ctx context.Context, actor *models.User, projectRef string) ([]models.PublicGalleryImage, error) {
	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	images, err := r.gallery.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	out := make([]models.PublicGalleryImage, 0, len(images))
	for _, img := range images {
		out = append(out, img.Public())
	}
	return out, nil
}

// UpdateGalleryImageInput carries a partial gallery image patch
type UpdateGalleryImageInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Ordering    *int    `json:"ordering,omitempty"`
}

// UpdateGalleryImage patches an image's metadata; the blob never changes
func (r *Registry) UpdateGalleryImage(ctx context.Context, actor *models.User, projectRef, imageRef string, input UpdateGalleryImageInput) (*models.GalleryImage, error) {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	image, err := r.gallery.Resolve(ctx, project.ID, imageRef)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrNotFound
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name", ErrMissingField)
		}
		image.Name = *input.Name
	}
	if input.Description != nil {
		image.Description = input.Description
	}
	if input.Ordering != nil {
		image.Ordering = *input.Ordering
	}

	if err := r.gallery.Update(ctx, image); err != nil {
		return nil, err
	}

	r.publish(events.GalleryUpdated, project.ID, actor, image.Name)
	return image, nil
}

// DeleteGalleryImage removes an image row and, when that row was the last
// reference, its blob.
func (r *Registry) DeleteGalleryImage(ctx context.Context, actor *models.User, projectRef, imageRef string) error {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return err
	}

	image, err := r.gallery.Resolve(ctx, project.ID, imageRef)
	if err != nil {
		return err
	}
	if image == nil {
		return ErrNotFound
	}

	r.deleteBlobIfUnreferenced(ctx, storage.BucketGallery, image.S3ID, r.gallery.CountImagesByBlobKey)

	if err := r.gallery.Delete(ctx, image.ID); err != nil {
		return err
	}

	r.publish(events.GalleryUpdated, project.ID, actor, image.Name)
	return nil
}

// OpenGalleryFile opens a gallery blob by its key for serving. The key must
// be referenced by at least one gallery row; dangling keys are not served
// even if the blob still exists.
func (r *Registry) OpenGalleryFile(ctx context.Context, key string) (io.ReadCloser, error) {
	image, err := r.gallery.GetByBlobKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrNotFound
	}

	reader, err := r.store.Get(ctx, storage.BucketGallery, key)
	if err != nil {
		telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketGallery), "get", "error").Inc()
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	telemetry.BlobOperationsTotal.WithLabelValues(string(storage.BucketGallery), "get", "ok").Inc()
	return reader, nil
}
