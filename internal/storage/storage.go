// Package storage defines the blob store interface used for project files and
// gallery images. Keys are content-addressed: version files are stored under
// their SHA-1 hex digest, gallery images under "{sha1}.{format}". The same
// bytes therefore always land on the same key, which is what makes
// deduplication and reference-counted deletion work.
//
// Backends register themselves with the factory via an init() function in
// their own package; cmd/server imports each backend with a blank import to
// trigger registration.
package storage

import (
	"context"
	"io"
)

// Bucket selects which logical blob namespace an operation targets. Version
// files and gallery images never share keys even when backed by the same
// physical store.
type Bucket string

const (
	// BucketProjects holds version file blobs, keyed by bare SHA-1.
	BucketProjects Bucket = "projects"
	// BucketGallery holds gallery image blobs, keyed by "{sha1}.{format}".
	BucketGallery Bucket = "gallery"
)

// Storage is the blob store interface. Implementations must tolerate
// double-puts of the same key (content addressing makes them idempotent) and
// treat deleting a missing key as success.
type Storage interface {
	// Put stores a blob under the key, overwriting any existing blob
	Put(ctx context.Context, bucket Bucket, key string, reader io.Reader, size int64) error

	// Get retrieves a blob; the caller closes the reader
	Get(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error)

	// Delete removes a blob; deleting a missing key is not an error
	Delete(ctx context.Context, bucket Bucket, key string) error

	// Exists checks whether a blob is stored under the key
	Exists(ctx context.Context, bucket Bucket, key string) (bool, error)
}
