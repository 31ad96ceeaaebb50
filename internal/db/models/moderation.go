package models

import "time"

// Moderation queue statuses. Only Approved projects are eligible for public
// search visibility.
const (
	ModerationPending     = "Pending"
	ModerationUnderReview = "UnderReview"
	ModerationApproved    = "Approved"
	ModerationDenied      = "Denied"
)

// ValidModerationStatus reports whether s is a recognized queue status.
func ValidModerationStatus(s string) bool {
	switch s {
	case ModerationPending, ModerationUnderReview, ModerationApproved, ModerationDenied:
		return true
	}
	return false
}

// ModerationQueueItem tracks the review state of a project. At most one item
// exists per project; it is created lazily on first moderation touch and is
// never implicitly deleted.
type ModerationQueueItem struct {
	ID         int       `json:"id"`
	ProjectID  int       `json:"project_id"`
	AssignedID *int      `json:"assigned_id,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ModerationComment is one entry in a project's moderation discussion log.
type ModerationComment struct {
	ID          int       `json:"id"`
	ProjectID   int       `json:"project_id"`
	UserID      int       `json:"user_id"`
	IsModerator bool      `json:"is_moderator"`
	IsSystem    bool      `json:"is_system"`
	Comment     string    `json:"comment"`
	CreatedAt   time.Time `json:"created_at"`
}
