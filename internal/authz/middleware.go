package authz

import (
	"net/http"

	"github.com/opsapi-io/opsapi/internal/audit"
	"github.com/opsapi-io/opsapi/internal/auth"
	"github.com/opsapi-io/opsapi/internal/tenant"
)

// Authorizer builds the HTTP policies that guard tenant-scoped routes.
// Each policy runs the same pipeline — verify the token, resolve the
// tenant, validate membership, compute permissions — and differs only
// in which failures it tolerates and what it checks afterwards.
type Authorizer struct {
	verifier *auth.Verifier
	resolver *tenant.Resolver
	members  MembershipDirectory
	audit    audit.Logger
}

// Option configures the Authorizer.
type Option func(*Authorizer)

// WithAuditLogger attaches an audit logger for recording denials.
func WithAuditLogger(logger audit.Logger) Option {
	return func(a *Authorizer) {
		a.audit = logger
	}
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(verifier *auth.Verifier, resolver *tenant.Resolver, members MembershipDirectory, opts ...Option) *Authorizer {
	a := &Authorizer{
		verifier: verifier,
		resolver: resolver,
		members:  members,
		audit:    audit.NopLogger{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// resolveAccess resolves the tenant for a verified (possibly nil)
// identity. Authenticated callers get a complete Access: membership
// validated, permissions computed. An anonymous caller gets the tenant
// with no membership and no permissions.
func (a *Authorizer) resolveAccess(r *http.Request, identity *auth.Identity) (*Access, error) {
	t, err := a.resolver.Resolve(r.Context(), r, identity)
	if err != nil {
		return nil, err
	}

	if identity == nil {
		return &Access{Tenant: t}, nil
	}

	m, err := ValidateMembership(r.Context(), a.members, identity.UserID, t)
	if err != nil {
		return nil, err
	}

	return &Access{
		Identity:    identity,
		Tenant:      t,
		Membership:  m,
		Permissions: Compute(m.Roles),
	}, nil
}

// establish runs the full authorization pipeline for a request and
// requires an active membership. identity is nil on public browse,
// which is denied here — anonymous callers never reach tenant-scoped
// handlers.
func (a *Authorizer) establish(r *http.Request) (*Access, error) {
	identity, err := a.verifier.VerifyRequest(r)
	if err != nil {
		return nil, err
	}

	access, err := a.resolveAccess(r, identity)
	if err != nil {
		return nil, err
	}
	if access.Membership == nil {
		return nil, tenant.ErrMembershipNotFound
	}
	return access, nil
}

// attach threads the established access through the request context,
// for both the authz helpers and the tenant package's handlers. An
// anonymous access carries no identity or membership to attach.
func attach(r *http.Request, access *Access) *http.Request {
	ctx := WithAccess(r.Context(), access)
	if access.Identity != nil {
		ctx = auth.NewContext(ctx, access.Identity)
	}
	ctx = tenant.NewContext(ctx, access.Tenant)
	if access.Membership != nil {
		ctx = tenant.NewMembershipContext(ctx, access.Membership)
	}
	return r.WithContext(ctx)
}

// RequireTenant admits only requests with a resolvable tenant and an
// active membership in it.
func (a *Authorizer) RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, err := a.establish(r)
		if err != nil {
			reject(w, err)
			return
		}
		next.ServeHTTP(w, attach(r, access))
	})
}

// OptionalTenant admits every request whose credentials are not
// actively bad. Tenant resolution and membership failures degrade to a
// request without tenant context; authentication failures still
// reject. Anonymous callers keep the resolved tenant with no
// membership or permissions, and a verified identity is kept even when
// resolution degrades.
func (a *Authorizer) OptionalTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.verifier.VerifyRequest(r)
		if err != nil {
			reject(w, err)
			return
		}
		if identity != nil {
			r = r.WithContext(auth.NewContext(r.Context(), identity))
		}

		access, err := a.resolveAccess(r, identity)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, attach(r, access))
	})
}

// RequirePermission admits only members allowed to perform action on
// module. Owners pass unconditionally. Denials are audited.
func (a *Authorizer) RequirePermission(module, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, err := a.establish(r)
			if err != nil {
				reject(w, err)
				return
			}

			if !access.Can(module, action) {
				a.audit.Log(r.Context(), audit.Event{
					TenantID: access.Tenant.ID,
					UserID:   access.Identity.UserID,
					Action:   audit.ActionAccessDenied,
					Module:   module,
					Metadata: map[string]any{"module": module, "action": action},
					Source:   "api",
				})
				reject(w, &PermissionDeniedError{Module: module, Action: action})
				return
			}

			next.ServeHTTP(w, attach(r, access))
		})
	}
}

// RequireOwner admits only the tenant's owners. Roles and permissions
// are irrelevant here; the ownership flag alone decides.
func (a *Authorizer) RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		access, err := a.establish(r)
		if err != nil {
			reject(w, err)
			return
		}
		if !access.Owner() {
			reject(w, ErrOwnershipRequired)
			return
		}
		next.ServeHTTP(w, attach(r, access))
	})
}

// RequireAdmin is RequirePermission("organization", "manage"): full
// administrative control over the tenant, held by owners and members
// whose roles manage the organization module.
func (a *Authorizer) RequireAdmin(next http.Handler) http.Handler {
	return a.RequirePermission("organization", ActionManage)(next)
}

// RequireAuthenticated admits any request with a valid token,
// tenant-scoped or not. Public browse does not pass.
func (a *Authorizer) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := a.verifier.VerifyRequest(r)
		if err != nil {
			reject(w, err)
			return
		}
		if identity == nil {
			reject(w, auth.ErrAuthRequired)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), identity)))
	})
}

// RequirePlatformAdmin admits only platform operators. Used for tenant
// provisioning, which by nature happens outside any tenant scope.
func (a *Authorizer) RequirePlatformAdmin(next http.Handler) http.Handler {
	return a.RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := auth.GetIdentity(r.Context())
		if identity == nil || !identity.PlatformAdmin {
			reject(w, ErrPlatformAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
