// moderation_repository.go implements ModerationRepository for the per-project
// review queue and its comment log.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/modvault/modvault/internal/db/models"
)

// ModerationRepository handles database operations for the moderation queue
type ModerationRepository struct {
	db *sql.DB
}

// NewModerationRepository creates a new moderation repository
func NewModerationRepository(db *sql.DB) *ModerationRepository {
	return &ModerationRepository{db: db}
}

const moderationColumns = `id, project_id, assigned_id, status, created_at`

func scanQueueItem(row interface{ Scan(...any) error }) (*models.ModerationQueueItem, error) {
	m := &models.ModerationQueueItem{}
	err := row.Scan(&m.ID, &m.ProjectID, &m.AssignedID, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetForProject retrieves the queue item for a project, or nil if the project
// has never been touched by moderation.
func (r *ModerationRepository) GetForProject(ctx context.Context, projectID int) (*models.ModerationQueueItem, error) {
	query := `SELECT ` + moderationColumns + ` FROM moderation_queue WHERE project_id = $1`

	m, err := scanQueueItem(r.db.QueryRowContext(ctx, query, projectID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}

	return m, nil
}

// GetOrCreateForProject returns the project's queue item, creating a Pending
// one on first touch. The upsert keeps concurrent first touches from racing
// into a duplicate-key error.
func (r *ModerationRepository) GetOrCreateForProject(ctx context.Context, projectID int) (*models.ModerationQueueItem, error) {
	query := `
		INSERT INTO moderation_queue (project_id, status)
		VALUES ($1, $2)
		ON CONFLICT (project_id) DO UPDATE SET project_id = EXCLUDED.project_id
		RETURNING ` + moderationColumns

	m, err := scanQueueItem(r.db.QueryRowContext(ctx, query, projectID, models.ModerationPending))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create queue item: %w", err)
	}

	return m, nil
}

// SetStatus updates a queue item's review status
func (r *ModerationRepository) SetStatus(ctx context.Context, id int, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_queue SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set queue status: %w", err)
	}
	return nil
}

// SetAssignee updates who is reviewing the item; nil clears the assignment
func (r *ModerationRepository) SetAssignee(ctx context.Context, id int, userID *int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE moderation_queue SET assigned_id = $2 WHERE id = $1`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to set queue assignee: %w", err)
	}
	return nil
}

// ListByStatus returns queue items in a given status, oldest first
func (r *ModerationRepository) ListByStatus(ctx context.Context, status string) ([]models.ModerationQueueItem, error) {
	query := `SELECT ` + moderationColumns + ` FROM moderation_queue WHERE status = $1 ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	defer rows.Close()

	var items []models.ModerationQueueItem
	for rows.Next() {
		m, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, *m)
	}

	return items, rows.Err()
}

// AddComment appends an entry to a project's moderation discussion
func (r *ModerationRepository) AddComment(ctx context.Context, comment *models.ModerationComment) error {
	query := `
		INSERT INTO moderation_comments (project_id, user_id, is_moderator, is_system, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		comment.ProjectID,
		comment.UserID,
		comment.IsModerator,
		comment.IsSystem,
		comment.Comment,
	).Scan(&comment.ID, &comment.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}

	return nil
}

// ListComments returns a project's moderation discussion, oldest first
func (r *ModerationRepository) ListComments(ctx context.Context, projectID int) ([]models.ModerationComment, error) {
	query := `
		SELECT id, project_id, user_id, is_moderator, is_system, comment, created_at
		FROM moderation_comments
		WHERE project_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []models.ModerationComment
	for rows.Next() {
		var c models.ModerationComment
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.UserID, &c.IsModerator, &c.IsSystem, &c.Comment, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	return comments, rows.Err()
}
