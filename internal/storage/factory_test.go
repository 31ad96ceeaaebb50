package storage

import (
	"context"
	"io"
	"testing"

	"github.com/modvault/modvault/internal/config"
)

type fakeStorage struct{}

func (fakeStorage) Put(ctx context.Context, bucket Bucket, key string, r io.Reader, size int64) error {
	return nil
}
func (fakeStorage) Get(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error) {
	return nil, nil
}
func (fakeStorage) Delete(ctx context.Context, bucket Bucket, key string) error { return nil }
func (fakeStorage) Exists(ctx context.Context, bucket Bucket, key string) (bool, error) {
	return false, nil
}

func TestNewStorage_RegisteredBackend(t *testing.T) {
	Register("fake", func(*config.Config) (Storage, error) {
		return fakeStorage{}, nil
	})

	cfg := &config.Config{}
	cfg.Storage.Backend = "fake"

	s, err := NewStorage(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatal("expected storage, got nil")
	}
}

func TestNewStorage_UnknownBackend(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Backend = "tape"

	if _, err := NewStorage(cfg); err == nil {
		t.Error("expected error for unknown backend")
	}
}
