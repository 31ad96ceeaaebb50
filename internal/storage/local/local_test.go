package local

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/modvault/modvault/internal/config"
	"github.com/modvault/modvault/internal/storage"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := New(&config.LocalStorageConfig{BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()
	content := []byte("jar bytes")

	err := s.Put(ctx, storage.BucketProjects, "da39a3ee5e6b4b0d3255bfef95601890afd80709", bytes.NewReader(content), int64(len(content)))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	rc, err := s.Get(ctx, storage.BucketProjects, "da39a3ee5e6b4b0d3255bfef95601890afd80709")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("got %q, want %q", got, content)
	}
}

func TestBucketsAreIsolated(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	err := s.Put(ctx, storage.BucketProjects, "abc", strings.NewReader("x"), 1)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	exists, err := s.Exists(ctx, storage.BucketGallery, "abc")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("key leaked across buckets")
	}
}

func TestPutIsIdempotent(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := s.Put(ctx, storage.BucketProjects, "abc", strings.NewReader("same"), 4); err != nil {
			t.Fatalf("Put #%d: %v", i+1, err)
		}
	}

	exists, err := s.Exists(ctx, storage.BucketProjects, "abc")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("expected blob to exist")
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	s := newLocal(t)

	if err := s.Delete(context.Background(), storage.BucketProjects, "never-stored"); err != nil {
		t.Errorf("Delete of missing blob: %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	s := newLocal(t)

	_, err := s.Get(context.Background(), storage.BucketProjects, "never-stored")
	if err == nil {
		t.Error("expected error for missing blob")
	}
}
