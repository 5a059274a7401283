package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionService defines operations for issuing and validating the signed
// session tokens that carry a caller's identity, whether delivered via the
// session cookie or a bearer header.
type SessionService interface {
	// IssueToken creates a signed session token for the user.
	IssueToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken validates a session token string and extracts its claims.
	// Returns ErrExpiredToken or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the decoded content of a session token.
type Claims struct {
	// UserID is the user the token was issued for.
	UserID uuid.UUID `json:"uid"`

	// Standard registered JWT claims.
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
