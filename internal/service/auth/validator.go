package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Validator checks caller credentials and resolves them to an identity.
// Token issuance belongs to the campus account service; this service only
// verifies what it is handed.
type Validator interface {
	// ValidateToken validates the provided token string and extracts the
	// claims. Returns the claims containing the caller's identity if the
	// token is valid, or an error if validation fails (expired, invalid
	// signature, etc.).
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims carries the identity extracted from a validated token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
