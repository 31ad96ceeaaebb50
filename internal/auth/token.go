// Package auth provides token primitives: opaque API token generation and
// the request-time resolution of a Bearer token to a user. Tokens are random,
// stored only as SHA-256 hashes, and expire server-side; there is nothing to
// verify statelessly, a lookup is the verification.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modvault/modvault/internal/db/models"
	"github.com/modvault/modvault/pkg/checksum"
)

const (
	// TokenPrefix marks modvault tokens so they are recognizable in leaked
	// credential scans.
	TokenPrefix = "mvt"

	// tokenBytes is the entropy of the random part
	tokenBytes = 32
)

// GenerateToken creates a new random API token.
// Returns the full token (shown to the user exactly once) and the hash that
// gets stored.
func GenerateToken() (token string, hash string, err error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = fmt.Sprintf("%s_%s", TokenPrefix, base64.RawURLEncoding.EncodeToString(raw))
	return token, HashToken(token), nil
}

// HashToken returns the stored form of a token. SHA-256 rather than bcrypt:
// the input is 256 bits of randomness, not a guessable password, so a fast
// hash is enough and keeps the per-request lookup cheap.
func HashToken(token string) string {
	return checksum.SHA256Hex([]byte(token))
}

// ExtractBearer extracts the token from an Authorization header
func ExtractBearer(header string) (string, error) {
	if header == "" {
		return "", errors.New("authorization header is empty")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("authorization header must start with 'Bearer '")
	}

	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", errors.New("token is empty after Bearer prefix")
	}
	return token, nil
}

// TokenStore is the persistence the resolver needs. Implemented by
// repositories.UserRepository.
type TokenStore interface {
	GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	GetByID(ctx context.Context, id int) (*models.User, error)
	CreateToken(ctx context.Context, token *models.UserToken) error
	DeleteToken(ctx context.Context, tokenHash string) error
}

// Resolver turns Bearer headers into users
type Resolver struct {
	store    TokenStore
	tokenTTL time.Duration
	sessions *SessionIssuer
}

// NewResolver creates a resolver over the given token store. sessions may be
// nil, in which case only opaque API tokens are accepted.
func NewResolver(store TokenStore, tokenTTL time.Duration, sessions *SessionIssuer) *Resolver {
	return &Resolver{store: store, tokenTTL: tokenTTL, sessions: sessions}
}

// ResolveHeader resolves an Authorization header to a user. Returns nil (no
// error) for absent headers: anonymous is a valid caller. Malformed headers
// and unknown or expired tokens return an error.
//
// Two token forms are accepted: opaque API tokens (mvt_ prefix, looked up by
// hash) and session JWTs issued by IssueSession.
func (r *Resolver) ResolveHeader(ctx context.Context, header string) (*models.User, error) {
	if header == "" {
		return nil, nil
	}

	token, err := ExtractBearer(header)
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(token, TokenPrefix+"_") {
		user, err := r.store.GetUserByTokenHash(ctx, HashToken(token))
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, errors.New("invalid or expired token")
		}
		return user, nil
	}

	if r.sessions == nil {
		return nil, errors.New("unrecognized token format")
	}

	userID, err := r.sessions.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := r.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("session user no longer exists")
	}
	return user, nil
}

// IssueSession exchanges an already-authenticated request for a short-lived
// session token. Fails when sessions are disabled.
func (r *Resolver) IssueSession(userID int) (string, time.Time, error) {
	if r.sessions == nil {
		return "", time.Time{}, errors.New("session tokens are disabled")
	}
	return r.sessions.Issue(userID)
}

// Issue creates and stores a new token for a user, returning the full token
// to show once.
func (r *Resolver) Issue(ctx context.Context, userID int) (string, error) {
	token, hash, err := GenerateToken()
	if err != nil {
		return "", err
	}

	err = r.store.CreateToken(ctx, &models.UserToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(r.tokenTTL),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// Revoke deletes a token by its plaintext form
func (r *Resolver) Revoke(ctx context.Context, token string) error {
	return r.store.DeleteToken(ctx, HashToken(token))
}
