// user_repository.go implements UserRepository: user lookup and the hashed
// API token table the auth layer resolves bearer credentials against.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/modvault/modvault/internal/db/models"
)

// UserRepository handles database operations for users and their tokens
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, github_id, admin, moderator, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.GithubID, &u.Admin, &u.Moderator, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user record
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, github_id, admin, moderator)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Username,
		user.GithubID,
		user.Admin,
		user.Moderator,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by numeric id
func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// Resolve retrieves a user by numeric id or username (case-insensitive)
func (r *UserRepository) Resolve(ctx context.Context, ref string) (*models.User, error) {
	if id, err := strconv.Atoi(ref); err == nil {
		u, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			return u, nil
		}
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, ref))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	return u, nil
}

// CreateToken stores a hashed API token for a user
func (r *UserRepository) CreateToken(ctx context.Context, token *models.UserToken) error {
	query := `
		INSERT INTO user_tokens (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// GetUserByTokenHash resolves an unexpired token hash to its user. Expired
// tokens are treated as absent; the sweep job removes them later.
func (r *UserRepository) GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	query := `
		SELECT u.id, u.username, u.github_id, u.admin, u.moderator, u.created_at
		FROM user_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1 AND t.expires_at > NOW()
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, tokenHash))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found or expired
		}
		return nil, fmt.Errorf("failed to resolve token: %w", err)
	}

	return u, nil
}

// DeleteToken removes a token by its hash, e.g. on logout
func (r *UserRepository) DeleteToken(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE token_hash = $1`, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}

// DeleteExpiredTokens removes tokens that expired before the cutoff and
// returns how many were swept.
func (r *UserRepository) DeleteExpiredTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM user_tokens WHERE expires_at <= $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted tokens: %w", err)
	}

	return affected, nil
}
