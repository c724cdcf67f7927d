package auth

import "errors"

var (
	ErrAuthRequired  = errors.New("authentication required")
	ErrAuthMalformed = errors.New("invalid authorization format")
	ErrTokenInvalid  = errors.New("invalid or expired token")
	ErrTokenPayload  = errors.New("invalid token payload")
)

// Identity is the verified claim set extracted from a bearer token.
// It is constructed once per request and never mutated afterward.
type Identity struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	PlatformAdmin bool   `json:"platform_admin,omitempty"`

	// Optional namespace hint embedded in the token by the identity
	// service. Consumed by the tenant resolver, nowhere else.
	TenantID   string `json:"tenant_id,omitempty"`
	TenantSlug string `json:"tenant_slug,omitempty"`
}
