// session.go implements short-lived stateless session tokens. Clients holding
// a long-lived API token can exchange it for a signed JWT and present that
// instead, which keeps the hot request path free of a token-table lookup per
// call. Sessions carry only the user id; the user row is still loaded fresh so
// role changes take effect within one request, not one session.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const sessionIssuer = "modvault"

// SessionIssuer signs and verifies session JWTs with an HMAC secret.
type SessionIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewSessionIssuer creates a session issuer. Returns nil when the secret is
// empty, which disables sessions entirely.
func NewSessionIssuer(secret string, ttl time.Duration) *SessionIssuer {
	if secret == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed session token for the user, returning the token and
// its expiry.
func (s *SessionIssuer) Issue(userID int) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    sessionIssuer,
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify validates a session token and returns the user id it was issued for.
func (s *SessionIssuer) Verify(token string) (int, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, errors.New("invalid session token: unexpected claims")
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, errors.New("invalid session token: non-numeric subject")
	}
	return userID, nil
}
