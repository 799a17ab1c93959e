package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/edukit/eduguard/pkg/rbac"
)

// Token types carried in the token_type claim. Only access tokens grant
// entry to protected routes; refresh tokens exist solely to mint new
// access tokens.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// CookieName is the fallback cookie consulted when no Authorization header
// is present. Browser clients set it on login.
const CookieName = "access-token"

// ErrInvalidToken is returned by TokenVerifier implementations when the
// token is malformed, expired, revoked, or of the wrong type. It maps to a
// 401 response. Any other error from a verifier is treated as a
// malfunction and maps to 500.
var ErrInvalidToken = errors.New("invalid or expired token")

// Client-facing failure messages. These are stable strings that frontends
// match on; do not reword them.
const (
	MsgNoToken      = "No authentication token provided"
	MsgInvalidToken = "Invalid or expired token"
	MsgAuthFailed   = "Authentication failed"
)

// Claims is the verified payload of a portal token.
type Claims struct {
	UserID            string   `json:"user_id"`
	Email             string   `json:"email"`
	Name              string   `json:"name"`
	Role              string   `json:"role"`
	RegionID          string   `json:"region_id,omitempty"`
	AccessibleRegions []string `json:"accessible_regions,omitempty"`
	SessionID         string   `json:"session_id,omitempty"`
	TOTPVerified      bool     `json:"totp_verified,omitempty"`
	CompanyID         *int64   `json:"company_id,omitempty"`
	TokenType         string   `json:"token_type"`
	jwt.RegisteredClaims
}

// User builds the authorization view of the claims.
func (c *Claims) User() *rbac.User {
	return &rbac.User{
		ID:                c.UserID,
		Email:             c.Email,
		Name:              c.Name,
		Role:              rbac.RoleName(c.Role),
		RegionID:          c.RegionID,
		AccessibleRegions: c.AccessibleRegions,
		SessionID:         c.SessionID,
		TOTPVerified:      c.TOTPVerified,
		CompanyID:         c.CompanyID,
	}
}

// TokenVerifier validates a raw token string of the given type.
//
// Implementations return ErrInvalidToken (possibly wrapped) for any token
// the caller should treat as unauthorized. Errors outside that chain
// signal a verifier malfunction.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token, tokenType string) (*Claims, error)
}

// Result is the outcome of authenticating a request.
type Result struct {
	Success bool
	User    *rbac.User
	Error   string
	Status  int
}
