package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// PublicBrowseHeader opts a request out of authentication entirely.
// Only handlers wrapped in an anonymous-eligible policy honor it.
const PublicBrowseHeader = "X-Public-Browse"

type opsClaims struct {
	jwt.RegisteredClaims
	UserID        string `json:"uid"`
	TenantID      string `json:"tid,omitempty"`
	TenantSlug    string `json:"tslug,omitempty"`
	Email         string `json:"email,omitempty"`
	DisplayName   string `json:"name,omitempty"`
	PlatformAdmin bool   `json:"padm,omitempty"`
}

// Verifier validates bearer tokens minted by the identity service.
// This layer never issues tokens.
type Verifier struct {
	signingKey []byte
	issuer     string
}

func NewVerifier(signingKey, issuer string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Verify validates the token's signature, expiry, and issuer, and
// extracts the identity claim set.
func (v *Verifier) Verify(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &opsClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer))

	if err != nil {
		// Surface the underlying reason (expired, bad signature, ...)
		// so the caller can return a diagnosable rejection.
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*opsClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrTokenPayload
	}

	return &Identity{
		UserID:        userID,
		Email:         claims.Email,
		DisplayName:   claims.DisplayName,
		PlatformAdmin: claims.PlatformAdmin,
		TenantID:      claims.TenantID,
		TenantSlug:    claims.TenantSlug,
	}, nil
}

// VerifyRequest authenticates an HTTP request. A nil identity with a
// nil error means the request opted into public browsing and proceeds
// anonymously.
func (v *Verifier) VerifyRequest(r *http.Request) (*Identity, error) {
	if PublicBrowse(r) {
		return nil, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrAuthRequired
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, ErrAuthMalformed
	}

	return v.Verify(strings.TrimSpace(parts[1]))
}

// PublicBrowse reports whether the request carries the anonymous
// browsing opt-out header.
func PublicBrowse(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(PublicBrowseHeader), "true")
}

// IsAuthError reports whether err belongs to the authentication error
// taxonomy (as opposed to tenant or permission failures).
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthRequired) ||
		errors.Is(err, ErrAuthMalformed) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenPayload)
}
