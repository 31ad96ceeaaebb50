// project_repository.go implements ProjectRepository, providing database
// queries for project CRUD, authorship, and the denormalized projections the
// search index synchronizer is rebuilt from.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/lib/pq"

	"github.com/modvault/modvault/internal/db/models"
)

// ProjectRepository handles database operations for projects and authorship
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `id, slug, name, readme, description, source, issues, wiki,
	license, visibility, downloads, tags, created_at, updated_at`

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	p := &models.Project{}
	err := row.Scan(
		&p.ID, &p.Slug, &p.Name, &p.Readme, &p.Description,
		&p.Source, &p.Issues, &p.Wiki, &p.License,
		&p.Visibility, &p.Downloads, pq.Array(&p.Tags),
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a new project record
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (slug, name, readme, description, source, issues, wiki, license, visibility, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, downloads, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		project.Slug,
		project.Name,
		project.Readme,
		project.Description,
		project.Source,
		project.Issues,
		project.Wiki,
		project.License,
		project.Visibility,
		pq.Array(project.Tags),
	).Scan(&project.ID, &project.Downloads, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// SlugTaken reports whether a project already uses the slug, compared
// case-insensitively.
func (r *ProjectRepository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE LOWER(slug) = LOWER($1))`,
		slug,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// GetByID retrieves a project by its numeric id
func (r *ProjectRepository) GetByID(ctx context.Context, id int) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return p, nil
}

// Resolve retrieves a project by either numeric id or slug. Numeric lookup is
// attempted first; when it misses (or the reference is not numeric) the slug
// is matched case-insensitively. This dual resolution is part of the API
// contract: /projects/42 and /projects/my-mod both work.
func (r *ProjectRepository) Resolve(ctx context.Context, ref string) (*models.Project, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		p, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}

	query := `SELECT ` + projectColumns + ` FROM projects WHERE LOWER(slug) = LOWER($1)`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, ref))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to resolve project: %w", err)
	}

	return p, nil
}

// Update patches the mutable descriptive fields of a project and bumps
// updated_at.
func (r *ProjectRepository) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects
		SET name = $2, readme = $3, description = $4, source = $5, issues = $6,
		    wiki = $7, license = $8, visibility = $9, tags = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		project.ID,
		project.Name,
		project.Readme,
		project.Description,
		project.Source,
		project.Issues,
		project.Wiki,
		project.License,
		project.Visibility,
		pq.Array(project.Tags),
	).Scan(&project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	return nil
}

// TouchUpdatedAt bumps a project's updated_at timestamp. Called by version
// and gallery uploads so the project surfaces as recently updated.
func (r *ProjectRepository) TouchUpdatedAt(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}
	return nil
}

// IncrementDownloads adds one to the project download counter.
func (r *ProjectRepository) IncrementDownloads(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE projects SET downloads = downloads + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment project downloads: %w", err)
	}
	return nil
}

// Delete removes a project row. Versions, files, gallery images, authorship,
// and moderation rows go with it via ON DELETE CASCADE; blob cleanup is the
// caller's responsibility and must happen before this.
func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// AddAuthor inserts an authorship row
func (r *ProjectRepository) AddAuthor(ctx context.Context, projectID, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO project_authors (project_id, user_id) VALUES ($1, $2)`,
		projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to add author: %w", err)
	}
	return nil
}

// RemoveAuthor deletes an authorship row
func (r *ProjectRepository) RemoveAuthor(ctx context.Context, projectID, userID int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM project_authors WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove author: %w", err)
	}
	return nil
}

// ListAuthors returns the users who own a project
func (r *ProjectRepository) ListAuthors(ctx context.Context, projectID int) ([]models.User, error) {
	query := `
		SELECT u.id, u.username, u.github_id, u.admin, u.moderator, u.created_at
		FROM project_authors pa
		JOIN users u ON u.id = pa.user_id
		WHERE pa.project_id = $1
		ORDER BY u.id
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	var authors []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.GithubID, &u.Admin, &u.Moderator, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, u)
	}

	return authors, rows.Err()
}

// IsAuthor reports whether the user owns the project
func (r *ProjectRepository) IsAuthor(ctx context.Context, projectID, userID int) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_authors WHERE project_id = $1 AND user_id = $2)`,
		projectID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check authorship: %w", err)
	}
	return exists, nil
}

// ListByAuthor returns all projects a user is an author of
func (r *ProjectRepository) ListByAuthor(ctx context.Context, userID int) ([]models.Project, error) {
	query := `
		SELECT p.id, p.slug, p.name, p.readme, p.description, p.source, p.issues,
		       p.wiki, p.license, p.visibility, p.downloads, p.tags, p.created_at, p.updated_at
		FROM projects p
		JOIN project_authors pa ON pa.project_id = p.id
		WHERE pa.user_id = $1
		ORDER BY p.updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects by author: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, *p)
	}

	return projects, rows.Err()
}
