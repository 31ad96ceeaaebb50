// projects.go implements project lifecycle operations.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/events"
	"github.com/modvault/modvault/internal/storage"
)

// CreateProjectInput carries the fields of a project creation request
type CreateProjectInput struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Readme      string   `json:"readme"`
	Description string   `json:"description"`
	Source      *string  `json:"source,omitempty"`
	Issues      *string  `json:"issues,omitempty"`
	Wiki        *string  `json:"wiki,omitempty"`
	License     *string  `json:"license,omitempty"`
	Visibility  string   `json:"visibility"`
	Tags        []string `json:"tags"`
}

// CreateProject registers a new project owned by the actor.
//
// The project insert and the authorship insert are separate statements, not
// one transaction: a crash between them leaves a project row with no author.
// Such a row is invisible to search (documents require an author) and gets
// adopted or removed by an operator.
func (r *Registry) CreateProject(ctx context.Context, actor *models.User, input CreateProjectInput) (*models.Project, error) {
	if actor == nil {
		return nil, ErrNotAuthorized
	}
	if strings.TrimSpace(input.Slug) == "" || strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("%w: slug, name, and description are required", ErrMissingField)
	}
	if input.Visibility == "" {
		input.Visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(input.Visibility) {
		return nil, fmt.Errorf("%w: visibility %q", ErrInvalidInput, input.Visibility)
	}

	taken, err := r.projects.SlugTaken(ctx, input.Slug)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrSlugTaken
	}

	project := &models.Project{
		Slug:        input.Slug,
		Name:        input.Name,
		Readme:      input.Readme,
		Description: input.Description,
		Source:      input.Source,
		Issues:      input.Issues,
		Wiki:        input.Wiki,
		License:     input.License,
		Visibility:  input.Visibility,
		Tags:        input.Tags,
	}
	if project.Tags == nil {
		project.Tags = []string{}
	}

	if err := r.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	if err := r.projects.AddAuthor(ctx, project.ID, actor.ID); err != nil {
		return nil, fmt.Errorf("project created but authorship insert failed: %w", err)
	}

	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("project created but index sync failed: %w", err)
	}

	r.publish(events.ProjectCreated, project.ID, actor, project.Slug)
	return project, nil
}

// GetProject resolves a project by id or slug, subject to the actor's
// visibility, and returns it with its author list.
func (r *Registry) GetProject(ctx context.Context, actor *models.User, ref string) (*models.ProjectData, error) {
	project, err := r.resolveVisible(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	authors, err := r.projects.ListAuthors(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	return &models.ProjectData{Project: *project, Authors: authors}, nil
}

// UpdateProjectInput carries a partial project patch; nil fields are left
// unchanged.
type UpdateProjectInput struct {
	Name        *string   `json:"name,omitempty"`
	Readme      *string   `json:"readme,omitempty"`
	Description *string   `json:"description,omitempty"`
	Source      *string   `json:"source,omitempty"`
	Issues      *string   `json:"issues,omitempty"`
	Wiki        *string   `json:"wiki,omitempty"`
	License     *string   `json:"license,omitempty"`
	Visibility  *string   `json:"visibility,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// UpdateProject applies a metadata patch and re-syncs the search document.
// The slug is immutable after creation.
func (r *Registry) UpdateProject(ctx context.Context, actor *models.User, ref string, input UpdateProjectInput) (*models.Project, error) {
	project, err := r.resolveEditable(ctx, actor, ref)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name", ErrMissingField)
		}
		project.Name = *input.Name
	}
	if input.Readme != nil {
		project.Readme = *input.Readme
	}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return nil, fmt.Errorf("%w: description", ErrMissingField)
		}
		project.Description = *input.Description
	}
	if input.Source != nil {
		project.Source = input.Source
	}
	if input.Issues != nil {
		project.Issues = input.Issues
	}
	if input.Wiki != nil {
		project.Wiki = input.Wiki
	}
	if input.License != nil {
		project.License = input.License
	}
	if input.Visibility != nil {
		if !models.ValidVisibility(*input.Visibility) {
			return nil, fmt.Errorf("%w: visibility %q", ErrInvalidInput, *input.Visibility)
		}
		project.Visibility = *input.Visibility
	}
	if input.Tags != nil {
		project.Tags = *input.Tags
	}

	if err := r.projects.Update(ctx, project); err != nil {
		return nil, err
	}

	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return nil, fmt.Errorf("project updated but index sync failed: %w", err)
	}

	r.publish(events.ProjectUpdated, project.ID, actor, project.Slug)
	return project, nil
}

// DeleteProject removes a project and everything hanging off it. Blobs are
// walked through the refcount gate before the row delete cascades the
// metadata away; the search document is removed last.
func (r *Registry) DeleteProject(ctx context.Context, actor *models.User, ref string) error {
	project, err := r.resolveEditable(ctx, actor, ref)
	if err != nil {
		return err
	}

	files, err := r.versions.ListFilesByProject(ctx, project.ID)
	if err != nil {
		return err
	}
	images, err := r.gallery.ListByProject(ctx, project.ID)
	if err != nil {
		return err
	}

	if err := r.projects.Delete(ctx, project.ID); err != nil {
		return err
	}

	// Rows are gone; now the counts see only references from other projects.
	for _, f := range files {
		r.deleteBlobIfUnreferencedAfterDelete(ctx, storage.BucketProjects, f.S3ID, r.versions.CountFilesByBlobKey)
	}
	for _, img := range images {
		r.deleteBlobIfUnreferencedAfterDelete(ctx, storage.BucketGallery, img.S3ID, r.gallery.CountImagesByBlobKey)
	}

	if err := r.index.DeleteProject(ctx, project.ID); err != nil {
		return fmt.Errorf("project deleted but index sync failed: %w", err)
	}

	r.publish(events.ProjectDeleted, project.ID, actor, project.Slug)
	return nil
}

// AddAuthor grants a user authorship of a project
func (r *Registry) AddAuthor(ctx context.Context, actor *models.User, projectRef, userRef string, resolveUser func(context.Context, string) (*models.User, error)) error {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return err
	}

	user, err := resolveUser(ctx, userRef)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	already, err := r.projects.IsAuthor(ctx, project.ID, user.ID)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if err := r.projects.AddAuthor(ctx, project.ID, user.ID); err != nil {
		return err
	}

	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return fmt.Errorf("author added but index sync failed: %w", err)
	}
	return nil
}

// RemoveAuthor revokes a user's authorship. Removing the last author is
// rejected so a live project never becomes ownerless.
func (r *Registry) RemoveAuthor(ctx context.Context, actor *models.User, projectRef, userRef string, resolveUser func(context.Context, string) (*models.User, error)) error {
	project, err := r.resolveEditable(ctx, actor, projectRef)
	if err != nil {
		return err
	}

	user, err := resolveUser(ctx, userRef)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	authors, err := r.projects.ListAuthors(ctx, project.ID)
	if err != nil {
		return err
	}
	if len(authors) <= 1 {
		return fmt.Errorf("%w: cannot remove the last author", ErrInvalidInput)
	}

	if err := r.projects.RemoveAuthor(ctx, project.ID, user.ID); err != nil {
		return err
	}

	if err := r.index.UpsertProject(ctx, project.ID); err != nil {
		return fmt.Errorf("author removed but index sync failed: %w", err)
	}
	return nil
}

// ListProjectsByAuthor returns the projects a user owns, filtered down to
// those the actor may see.
func (r *Registry) ListProjectsByAuthor(ctx context.Context, actor *models.User, userID int) ([]models.Project, error) {
	projects, err := r.projects.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		ok, err := r.canView(ctx, actor, &p)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, p)
		}
	}
	return visible, nil
}
