// Package models - project.go defines the Project model and its public data
// shape. Projects are the unit of publication: everything else (versions,
// files, gallery images, authorship, moderation state) hangs off a project.
package models

import "time"

// Project visibility states. Private projects are only visible to their
// authors and admins; Unlisted projects are reachable by direct link but
// excluded from public search.
const (
	VisibilityPublic   = "Public"
	VisibilityPrivate  = "Private"
	VisibilityUnlisted = "Unlisted"
)

// ValidVisibility reports whether v is one of the recognized states.
func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityPrivate || v == VisibilityUnlisted
}

// Project represents a hosted project (mod)
type Project struct {
	ID          int       `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Readme      string    `json:"readme"`
	Description string    `json:"description"`
	Source      *string   `json:"source,omitempty"`
	Issues      *string   `json:"issues,omitempty"`
	Wiki        *string   `json:"wiki,omitempty"`
	License     *string   `json:"license,omitempty"`
	Visibility  string    `json:"visibility"`
	Downloads   int       `json:"downloads"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProjectData is the public shape of a project: the project row plus its
// resolved author list. Search results and single-project reads both return
// this form.
type ProjectData struct {
	Project
	Authors []User `json:"authors"`
}

// ProjectAuthor is the many-to-many join between projects and users. It has
// no lifecycle beyond insert and delete.
type ProjectAuthor struct {
	ProjectID int `json:"project_id"`
	UserID    int `json:"user_id"`
}
