// projection_repository.go provides the denormalized reads the search index
// synchronizer is driven by. Full reindex only considers projects with at
// least one version and at least one author; single-project projection is
// laxer and requires only an author, so metadata-only projects still get a
// document on update.
package repositories

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/modvault/modvault/internal/db/models"
)

// Projection builds the search projection for one project, or nil when the
// project does not exist or has no authors.
func (r *ProjectRepository) Projection(ctx context.Context, projectID int) (*models.ProjectProjection, error) {
	project, err := r.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, nil
	}

	authors, err := r.ListAuthors(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		return nil, nil // Orphaned project, not indexable
	}

	versions, err := r.listVersions(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &models.ProjectProjection{
		Project:  *project,
		Authors:  authors,
		Versions: versions,
	}, nil
}

// AllProjections builds projections for every indexable project. Three bulk
// queries grouped in memory, rather than one row per project.
func (r *ProjectRepository) AllProjections(ctx context.Context) ([]models.ProjectProjection, error) {
	projectQuery := `
		SELECT ` + projectColumns + `
		FROM projects p
		WHERE EXISTS (SELECT 1 FROM project_versions v WHERE v.project_id = p.id)
		  AND EXISTS (SELECT 1 FROM project_authors a WHERE a.project_id = p.id)
		ORDER BY p.id
	`

	rows, err := r.db.QueryContext(ctx, projectQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexable projects: %w", err)
	}
	defer rows.Close()

	var order []int
	byID := map[int]*models.ProjectProjection{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		order = append(order, p.ID)
		byID[p.ID] = &models.ProjectProjection{Project: *p}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachAuthors(ctx, byID); err != nil {
		return nil, err
	}
	if err := r.attachVersions(ctx, byID); err != nil {
		return nil, err
	}

	projections := make([]models.ProjectProjection, 0, len(order))
	for _, id := range order {
		projections = append(projections, *byID[id])
	}
	return projections, nil
}

func (r *ProjectRepository) attachAuthors(ctx context.Context, byID map[int]*models.ProjectProjection) error {
	query := `
		SELECT pa.project_id, u.id, u.username, u.github_id, u.admin, u.moderator, u.created_at
		FROM project_authors pa
		JOIN users u ON u.id = pa.user_id
		ORDER BY pa.project_id, u.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list authorship: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var projectID int
		var u models.User
		if err := rows.Scan(&projectID, &u.ID, &u.Username, &u.GithubID, &u.Admin, &u.Moderator, &u.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan authorship: %w", err)
		}
		if proj, ok := byID[projectID]; ok {
			proj.Authors = append(proj.Authors, u)
		}
	}
	return rows.Err()
}

func (r *ProjectRepository) attachVersions(ctx context.Context, byID map[int]*models.ProjectProjection) error {
	query := `
		SELECT ` + versionColumns + `
		FROM project_versions
		ORDER BY project_id, created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v models.ProjectVersion
		err := rows.Scan(
			&v.ID, &v.ProjectID, &v.Name, &v.VersionNumber, &v.Changelog,
			pq.Array(&v.Loaders), pq.Array(&v.GameVersions),
			&v.Downloads, &v.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan version: %w", err)
		}
		if proj, ok := byID[v.ProjectID]; ok {
			proj.Versions = append(proj.Versions, v)
		}
	}
	return rows.Err()
}

func (r *ProjectRepository) listVersions(ctx context.Context, projectID int) ([]models.ProjectVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM project_versions WHERE project_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []models.ProjectVersion
	for rows.Next() {
		var v models.ProjectVersion
		err := rows.Scan(
			&v.ID, &v.ProjectID, &v.Name, &v.VersionNumber, &v.Changelog,
			pq.Array(&v.Loaders), pq.Array(&v.GameVersions),
			&v.Downloads, &v.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, v)
	}

	return versions, rows.Err()
}
