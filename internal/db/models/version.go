// Package models - version.go defines project versions and their uploaded
// files. A file's sha1 doubles as its blob store key (s3_id): byte-identical
// uploads share one physical blob no matter how many file rows reference it.
package models

import "time"

// ProjectVersion represents a published version of a project
type ProjectVersion struct {
	ID            int       `json:"id"`
	ProjectID     int       `json:"project_id"`
	Name          string    `json:"name"`
	VersionNumber string    `json:"version_number"`
	Changelog     *string   `json:"changelog,omitempty"`
	Loaders       []string  `json:"loaders"`
	GameVersions  []string  `json:"game_versions"`
	Downloads     int       `json:"downloads"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProjectVersionData is a version together with its files.
type ProjectVersionData struct {
	ProjectVersion
	Files []ProjectFile `json:"files"`
}

// ProjectFile represents one uploaded artifact belonging to a version. SHA1
// and S3ID always hold the same value for version files; both columns exist
// because SHA1 is the integrity fingerprint shown to clients while S3ID is
// the storage key the blob layer operates on.
type ProjectFile struct {
	ID        int       `json:"id"`
	VersionID int       `json:"version_id"`
	FileName  string    `json:"file_name"`
	SHA1      string    `json:"sha1"`
	S3ID      string    `json:"s3_id"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
