// Package local implements the local filesystem blob store backend. Intended
// for development and single-node deployments; multiple instances would need
// a shared filesystem. Each logical bucket becomes a subdirectory under the
// configured base path.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/storage"
)

func init() {
	// Register local storage backend
	storage.Register("local", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Local)
	})
}

// LocalStorage implements the Storage interface for local filesystem storage
type LocalStorage struct {
	basePath string
}

// New creates a new local filesystem storage backend
func New(cfg *config.LocalStorageConfig) (*LocalStorage, error) {
	for _, bucket := range []storage.Bucket{storage.BucketProjects, storage.BucketGallery} {
		dir := filepath.Join(cfg.BasePath, string(bucket))
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	return &LocalStorage{basePath: cfg.BasePath}, nil
}

// blobPath resolves a bucket/key pair to a path under basePath. Keys are
// SHA-1 derived so they contain no separators, but Base guards against a
// crafted key escaping the bucket directory anyway.
func (s *LocalStorage) blobPath(bucket storage.Bucket, key string) string {
	return filepath.Join(s.basePath, string(bucket), filepath.Base(key))
}

// Put stores a blob on disk. The write goes to a temp file first and is
// renamed into place so readers never observe a partially written blob.
func (s *LocalStorage) Put(ctx context.Context, bucket storage.Bucket, key string, reader io.Reader, size int64) error {
	fullPath := s.blobPath(bucket, key)

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to store blob: %w", err)
	}

	return nil
}

// Get retrieves a blob from disk
func (s *LocalStorage) Get(ctx context.Context, bucket storage.Bucket, key string) (io.ReadCloser, error) {
	file, err := os.Open(s.blobPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob not found: %s", key)
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}

	return file, nil
}

// Delete removes a blob from disk; a missing blob is not an error
func (s *LocalStorage) Delete(ctx context.Context, bucket storage.Bucket, key string) error {
	if err := os.Remove(s.blobPath(bucket, key)); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Exists checks whether a blob is stored under the key
func (s *LocalStorage) Exists(ctx context.Context, bucket storage.Bucket, key string) (bool, error) {
	_, err := os.Stat(s.blobPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}
