// Package models - user.go defines the User account model and the bearer
// tokens that authenticate API requests.
package models

import "time"

// User represents a registered account
type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	GithubID  *int64    `json:"github_id,omitempty"`
	Admin     bool      `json:"admin"`
	Moderator bool      `json:"moderator"`
	CreatedAt time.Time `json:"created_at"`
}

// UserToken represents a bearer token stored hashed at rest. Expired tokens
// are removed by the background sweep in internal/jobs.
type UserToken struct {
	ID        int       `json:"id"`
	UserID    int       `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
