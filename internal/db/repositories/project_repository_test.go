package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/modvault/modvault/internal/db/models"
)

var errDB = errors.New("db error")

// ---------------------------------------------------------------------------
// Column definitions
// ---------------------------------------------------------------------------

var projectCols = []string{
	"id", "slug", "name", "readme", "description", "source", "issues", "wiki",
	"license", "visibility", "downloads", "tags", "created_at", "updated_at",
}

var projectCreateCols = []string{"id", "downloads", "created_at", "updated_at"}

var authorCols = []string{"id", "username", "github_id", "admin", "moderator", "created_at"}

// ---------------------------------------------------------------------------
// Row builders
// ---------------------------------------------------------------------------

func sampleProjectRow() *sqlmock.Rows {
	return sqlmock.NewRows(projectCols).
		AddRow(1, "test-mod", "Test Mod", "# Readme", "A test project", nil, nil, nil,
			nil, "Public", 0, pq.StringArray{"tech"}, time.Now(), time.Now())
}

func emptyProjectRow() *sqlmock.Rows {
	return sqlmock.NewRows(projectCols)
}

func sampleAuthorRows() *sqlmock.Rows {
	return sqlmock.NewRows(authorCols).
		AddRow(7, "alice", nil, false, false, time.Now()).
		AddRow(8, "bob", nil, false, true, time.Now())
}

func newProjectRepo(t *testing.T) (*ProjectRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewProjectRepository(db), mock
}

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

func TestResolveProject_ByID(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("SELECT.*FROM projects WHERE id").
		WillReturnRows(sampleProjectRow())

	p, err := repo.Resolve(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected project, got nil")
	}
	if p.Slug != "test-mod" {
		t.Errorf("Slug = %s, want test-mod", p.Slug)
	}
}

func TestResolveProject_BySlug(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery(`SELECT.*FROM projects WHERE LOWER\(slug\)`).
		WithArgs("Test-Mod").
		WillReturnRows(sampleProjectRow())

	p, err := repo.Resolve(context.Background(), "Test-Mod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected project, got nil")
	}
}

// A numeric reference that misses by id must fall through to slug matching:
// a project whose slug happens to be all digits is still reachable.
func TestResolveProject_NumericFallsBackToSlug(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("SELECT.*FROM projects WHERE id").
		WillReturnRows(emptyProjectRow())
	mock.ExpectQuery(`SELECT.*FROM projects WHERE LOWER\(slug\)`).
		WillReturnRows(sampleProjectRow())

	p, err := repo.Resolve(context.Background(), "1337")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p == nil {
		t.Fatal("expected project, got nil")
	}
}

func TestResolveProject_NotFound(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery(`SELECT.*FROM projects WHERE LOWER\(slug\)`).
		WillReturnRows(emptyProjectRow())

	p, err := repo.Resolve(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != nil {
		t.Error("expected nil project, got non-nil")
	}
}

func TestResolveProject_DBError(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery(`SELECT.*FROM projects WHERE LOWER\(slug\)`).
		WillReturnError(errDB)

	_, err := repo.Resolve(context.Background(), "missing")
	if err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// SlugTaken
// ---------------------------------------------------------------------------

func TestSlugTaken(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery(`SELECT EXISTS.*LOWER\(slug\)`).
		WithArgs("FOO").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.SlugTaken(context.Background(), "FOO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !taken {
		t.Error("expected slug to be taken")
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateProject_Success(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(sqlmock.NewRows(projectCreateCols).AddRow(42, 0, time.Now(), time.Now()))

	p := &models.Project{Slug: "new-mod", Name: "New Mod", Visibility: models.VisibilityPublic}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != 42 {
		t.Errorf("ID = %d, want 42", p.ID)
	}
}

func TestCreateProject_DBError(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnError(errDB)

	p := &models.Project{Slug: "new-mod"}
	if err := repo.Create(context.Background(), p); err == nil {
		t.Error("expected error, got nil")
	}
}

// ---------------------------------------------------------------------------
// Authors
// ---------------------------------------------------------------------------

func TestListAuthors(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("SELECT.*FROM project_authors.*JOIN users").
		WithArgs(1).
		WillReturnRows(sampleAuthorRows())

	authors, err := repo.ListAuthors(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("len = %d, want 2", len(authors))
	}
	if authors[0].Username != "alice" {
		t.Errorf("Username = %s, want alice", authors[0].Username)
	}
}

func TestIsAuthor(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("SELECT EXISTS.*FROM project_authors").
		WithArgs(1, 7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.IsAuthor(context.Background(), 1, 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected authorship")
	}
}

func TestRemoveAuthor(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectExec("DELETE FROM project_authors").
		WithArgs(1, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RemoveAuthor(context.Background(), 1, 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Projections
// ---------------------------------------------------------------------------

func TestProjection_NoAuthorsNotIndexable(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("SELECT.*FROM projects WHERE id").
		WillReturnRows(sampleProjectRow())
	mock.ExpectQuery("SELECT.*FROM project_authors.*JOIN users").
		WillReturnRows(sqlmock.NewRows(authorCols))

	proj, err := repo.Projection(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj != nil {
		t.Error("expected nil projection for authorless project")
	}
}

func TestProjection_Found(t *testing.T) {
	repo, mock := newProjectRepo(t)
	mock.ExpectQuery("SELECT.*FROM projects WHERE id").
		WillReturnRows(sampleProjectRow())
	mock.ExpectQuery("SELECT.*FROM project_authors.*JOIN users").
		WillReturnRows(sampleAuthorRows())
	mock.ExpectQuery("SELECT.*FROM project_versions").
		WillReturnRows(sampleVersionRow())

	proj, err := repo.Projection(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proj == nil {
		t.Fatal("expected projection, got nil")
	}
	if len(proj.Authors) != 2 || len(proj.Versions) != 1 {
		t.Errorf("authors = %d, versions = %d, want 2 and 1", len(proj.Authors), len(proj.Versions))
	}
}
