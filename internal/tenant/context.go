package tenant

import "context"

type tenantKey struct{}
type membershipKey struct{}

// NewContext returns a context carrying the resolved tenant.
func NewContext(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// FromContext extracts the resolved tenant, if any.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*Tenant)
	return t, ok
}

// NewMembershipContext returns a context carrying the caller's
// membership in the resolved tenant.
func NewMembershipContext(ctx context.Context, m *Membership) context.Context {
	return context.WithValue(ctx, membershipKey{}, m)
}

// MembershipFromContext extracts the caller's membership, if any.
func MembershipFromContext(ctx context.Context) (*Membership, bool) {
	m, ok := ctx.Value(membershipKey{}).(*Membership)
	return m, ok
}
