// moderation.go implements the review queue. Queue items are created lazily:
// a project first touched by any moderation operation gets a Pending item.
// Approval gates public search visibility together with Public visibility.
package registry

import (
	"context"
	"fmt"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/internal/events"
)

func isModerator(actor *models.User) bool {
	return actor != nil && (actor.Moderator || actor.Admin)
}

// GetModerationItem returns (creating if needed) the queue item for a
// project. Moderators and the project's authors may look.
func (r *Registry) GetModerationItem(ctx context.Context, actor *models.User, projectRef string) (*models.ModerationQueueItem, error) {
	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	if !isModerator(actor) {
		editable, err := r.canEdit(ctx, actor, project.ID)
		if err != nil {
			return nil, err
		}
		if !editable {
			return nil, ErrNotAuthorized
		}
	}

	return r.moderation.GetOrCreateForProject(ctx, project.ID)
}

// SetModerationStatus moves a project's queue item to a new status.
// Moderators only.
func (r *Registry) SetModerationStatus(ctx context.Context, actor *models.User, projectRef, status string) (*models.ModerationQueueItem, error) {
	if !isModerator(actor) {
		return nil, ErrNotAuthorized
	}
	if !models.ValidModerationStatus(status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}

	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	item, err := r.moderation.GetOrCreateForProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	if err := r.moderation.SetStatus(ctx, item.ID, status); err != nil {
		return nil, err
	}
	item.Status = status

	r.publish(events.StatusChanged, project.ID, actor, status)
	return item, nil
}

// AssignModerator sets (or clears, with nil) who is reviewing a project.
// Moderators only.
func (r *Registry) AssignModerator(ctx context.Context, actor *models.User, projectRef string, userID *int) (*models.ModerationQueueItem, error) {
	if !isModerator(actor) {
		return nil, ErrNotAuthorized
	}

	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	item, err := r.moderation.GetOrCreateForProject(ctx, project.ID)
	if err != nil {
		return nil, err
	}

	if err := r.moderation.SetAssignee(ctx, item.ID, userID); err != nil {
		return nil, err
	}
	item.AssignedID = userID
	return item, nil
}

// ListModerationQueue returns queue items in the given status. Moderators
// only.
func (r *Registry) ListModerationQueue(ctx context.Context, actor *models.User, status string) ([]models.ModerationQueueItem, error) {
	if !isModerator(actor) {
		return nil, ErrNotAuthorized
	}
	if !models.ValidModerationStatus(status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}

	return r.moderation.ListByStatus(ctx, status)
}

// AddModerationComment appends to a project's moderation discussion. Authors
// and moderators may comment; the moderator flag is recorded from the
// actor's role at posting time.
func (r *Registry) AddModerationComment(ctx context.Context, actor *models.User, projectRef, text string) (*models.ModerationComment, error) {
	if actor == nil {
		return nil, ErrNotAuthorized
	}

	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	if !isModerator(actor) {
		editable, err := r.canEdit(ctx, actor, project.ID)
		if err != nil {
			return nil, err
		}
		if !editable {
			return nil, ErrNotAuthorized
		}
	}

	if text == "" {
		return nil, fmt.Errorf("%w: comment", ErrMissingField)
	}

	// First comment on an untracked project pulls it into the queue
	if _, err := r.moderation.GetOrCreateForProject(ctx, project.ID); err != nil {
		return nil, err
	}

	comment := &models.ModerationComment{
		ProjectID:   project.ID,
		UserID:      actor.ID,
		IsModerator: isModerator(actor),
		Comment:     text,
	}
	if err := r.moderation.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ListModerationComments returns a project's moderation discussion for
// authors and moderators.
func (r *Registry) ListModerationComments(ctx context.Context, actor *models.User, projectRef string) ([]models.ModerationComment, error) {
	project, err := r.resolveVisible(ctx, actor, projectRef)
	if err != nil {
		return nil, err
	}

	if !isModerator(actor) {
		editable, err := r.canEdit(ctx, actor, project.ID)
		if err != nil {
			return nil, err
		}
		if !editable {
			return nil, ErrNotAuthorized
		}
	}

	return r.moderation.ListComments(ctx, project.ID)
}

// IsVisibleInSearch reports whether a project should surface in public
// search: Public visibility and an Approved moderation status.
func (r *Registry) IsVisibleInSearch(ctx context.Context, projectID int) (bool, error) {
	project, err := r.projects.GetByID(ctx, projectID)
	if err != nil {
		return false, err
	}
	if project == nil || project.Visibility != models.VisibilityPublic {
		return false, nil
	}

	item, err := r.moderation.GetForProject(ctx, projectID)
	if err != nil {
		return false, err
	}
	return item != nil && item.Status == models.ModerationApproved, nil
}
