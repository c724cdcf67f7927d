// Package authz composes token verification, tenant resolution,
// membership validation, and permission evaluation into HTTP middleware
// policies.
package authz

import (
	"context"
	"errors"

	"github.com/opsapi-io/opsapi/internal/auth"
	"github.com/opsapi-io/opsapi/internal/tenant"
)

var (
	ErrOwnershipRequired     = errors.New("owner access required")
	ErrPlatformAdminRequired = errors.New("platform administrator access required")
)

// Access is the full authorization context assembled for a request that
// passed a tenant-scoped policy. Handlers read it from the request
// context via GetAccess.
type Access struct {
	Identity    *auth.Identity
	Tenant      *tenant.Tenant
	Membership  *tenant.Membership
	Permissions PermissionSet
}

// Owner reports whether the caller owns the tenant.
func (a *Access) Owner() bool {
	return a.Membership != nil && a.Membership.IsOwner
}

// Can reports whether the caller may perform action on module. Owners
// bypass permission evaluation entirely.
func (a *Access) Can(module, action string) bool {
	if a.Owner() {
		return true
	}
	return a.Permissions.Allows(module, action)
}

type accessKey struct{}

// WithAccess returns a context carrying the assembled access.
func WithAccess(ctx context.Context, access *Access) context.Context {
	return context.WithValue(ctx, accessKey{}, access)
}

// GetAccess extracts the assembled access from the context, or nil when
// the request did not pass a tenant-scoped policy.
func GetAccess(ctx context.Context) *Access {
	access, _ := ctx.Value(accessKey{}).(*Access)
	return access
}
