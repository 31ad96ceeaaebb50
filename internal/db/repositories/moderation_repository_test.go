package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/modvault/modvault/internal/db/models"
)

var queueCols = []string{"id", "project_id", "assigned_id", "status", "created_at"}

func sampleQueueRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows(queueCols).
		AddRow(3, 1, nil, status, time.Now())
}

func newModerationRepo(t *testing.T) (*ModerationRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewModerationRepository(db), mock
}

func TestGetForProject_NotFound(t *testing.T) {
	repo, mock := newModerationRepo(t)
	mock.ExpectQuery("SELECT.*FROM moderation_queue").
		WillReturnRows(sqlmock.NewRows(queueCols))

	item, err := repo.GetForProject(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item != nil {
		t.Error("expected nil item, got non-nil")
	}
}

func TestGetOrCreateForProject(t *testing.T) {
	repo, mock := newModerationRepo(t)
	mock.ExpectQuery("INSERT INTO moderation_queue.*ON CONFLICT").
		WithArgs(1, models.ModerationPending).
		WillReturnRows(sampleQueueRow(models.ModerationPending))

	item, err := repo.GetOrCreateForProject(context.Background(), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item == nil {
		t.Fatal("expected item, got nil")
	}
	if item.Status != models.ModerationPending {
		t.Errorf("Status = %s, want Pending", item.Status)
	}
}

func TestSetStatus(t *testing.T) {
	repo, mock := newModerationRepo(t)
	mock.ExpectExec("UPDATE moderation_queue SET status").
		WithArgs(3, models.ModerationApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetStatus(context.Background(), 3, models.ModerationApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddComment(t *testing.T) {
	repo, mock := newModerationRepo(t)
	mock.ExpectQuery("INSERT INTO moderation_comments").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, time.Now()))

	c := &models.ModerationComment{ProjectID: 1, UserID: 7, Comment: "Looks fine"}
	if err := repo.AddComment(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID != 11 {
		t.Errorf("ID = %d, want 11", c.ID)
	}
}

func TestListByStatus(t *testing.T) {
	repo, mock := newModerationRepo(t)
	mock.ExpectQuery("SELECT.*FROM moderation_queue WHERE status").
		WithArgs(models.ModerationUnderReview).
		WillReturnRows(sampleQueueRow(models.ModerationUnderReview))

	items, err := repo.ListByStatus(context.Background(), models.ModerationUnderReview)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}
}
