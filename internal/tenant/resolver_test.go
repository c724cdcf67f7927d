package tenant_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsapi-io/opsapi/internal/auth"
	"github.com/opsapi-io/opsapi/internal/tenant"
)

// stubDirectory resolves a fixed set of tenants keyed by external ID or
// slug, recording each lookup.
type stubDirectory struct {
	tenants map[string]*tenant.Tenant
	lookups []string
}

func (d *stubDirectory) LookupByIDOrSlug(_ context.Context, key string) (*tenant.Tenant, error) {
	d.lookups = append(d.lookups, key)
	if t, ok := d.tenants[key]; ok {
		return t, nil
	}
	return nil, tenant.ErrTenantNotFound
}

func activeTenant(externalID, slug string) *tenant.Tenant {
	return &tenant.Tenant{ID: 1, ExternalID: externalID, Slug: slug, Status: tenant.StatusActive}
}

func newRequest(host string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = host
	return req
}

func TestResolverPriority(t *testing.T) {
	identity := &auth.Identity{
		UserID:     "user-1",
		TenantID:   "token-id",
		TenantSlug: "token-slug",
	}

	tests := []struct {
		name     string
		setup    func(*http.Request)
		identity *auth.Identity
		want     string
	}{
		{
			name: "id header beats everything",
			setup: func(r *http.Request) {
				r.Header.Set(tenant.HeaderNamespaceID, "header-id")
				r.Header.Set(tenant.HeaderNamespaceSlug, "header-slug")
			},
			identity: identity,
			want:     "header-id",
		},
		{
			name: "slug header beats token hint",
			setup: func(r *http.Request) {
				r.Header.Set(tenant.HeaderNamespaceSlug, "header-slug")
			},
			identity: identity,
			want:     "header-slug",
		},
		{
			name:     "token id beats token slug",
			setup:    func(r *http.Request) {},
			identity: identity,
			want:     "token-id",
		},
		{
			name:     "token slug beats subdomain",
			setup:    func(r *http.Request) {},
			identity: &auth.Identity{UserID: "user-1", TenantSlug: "token-slug"},
			want:     "token-slug",
		},
		{
			name:     "subdomain is the last resort",
			setup:    func(r *http.Request) {},
			identity: &auth.Identity{UserID: "user-1"},
			want:     "acme",
		},
		{
			name:     "anonymous falls through to subdomain",
			setup:    func(r *http.Request) {},
			identity: nil,
			want:     "acme",
		},
		{
			name: "blank header is skipped",
			setup: func(r *http.Request) {
				r.Header.Set(tenant.HeaderNamespaceID, "   ")
			},
			identity: identity,
			want:     "token-id",
		},
	}

	resolver := tenant.NewResolver(&stubDirectory{}, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest("acme.opsapi.io")
			tt.setup(req)
			assert.Equal(t, tt.want, resolver.Candidate(req, tt.identity))
		})
	}
}

func TestResolverSubdomain(t *testing.T) {
	resolver := tenant.NewResolver(&stubDirectory{}, nil)

	tests := []struct {
		host string
		want string
	}{
		{"acme.opsapi.io", "acme"},
		{"acme.opsapi.io:8443", "acme"},
		{"ACME.opsapi.io", "acme"},
		{"www.opsapi.io", ""},
		{"api.opsapi.io", ""},
		{"dashboard.opsapi.io", ""},
		{"localhost.opsapi.io", ""},
		{"opsapi.io", ""},
		{"localhost:8080", ""},
		{"", ""},
	}

	for _, tt := range tests {
		req := newRequest(tt.host)
		assert.Equal(t, tt.want, resolver.Candidate(req, nil), "host %q", tt.host)
	}
}

func TestResolverCustomReservedLabels(t *testing.T) {
	resolver := tenant.NewResolver(&stubDirectory{}, []string{"www", "staging"})

	assert.Equal(t, "", resolver.Candidate(newRequest("staging.opsapi.io"), nil))
	// The custom list replaces the default, it does not extend it.
	assert.Equal(t, "api", resolver.Candidate(newRequest("api.opsapi.io"), nil))
}

func TestResolve_NoContext(t *testing.T) {
	dir := &stubDirectory{}
	resolver := tenant.NewResolver(dir, nil)

	_, err := resolver.Resolve(context.Background(), newRequest("opsapi.io"), nil)
	assert.ErrorIs(t, err, tenant.ErrNoTenantContext)
	assert.Empty(t, dir.lookups, "no candidate means no lookup")
}

func TestResolve_NotFound(t *testing.T) {
	resolver := tenant.NewResolver(&stubDirectory{}, nil)

	req := newRequest("opsapi.io")
	req.Header.Set(tenant.HeaderNamespaceSlug, "ghost")

	_, err := resolver.Resolve(context.Background(), req, nil)
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestResolve_WinnerDoesNotFallBack(t *testing.T) {
	// The header names a tenant that does not exist; the resolvable
	// subdomain must not be consulted as a fallback.
	dir := &stubDirectory{tenants: map[string]*tenant.Tenant{
		"acme": activeTenant("ext-1", "acme"),
	}}
	resolver := tenant.NewResolver(dir, nil)

	req := newRequest("acme.opsapi.io")
	req.Header.Set(tenant.HeaderNamespaceID, "ghost")

	_, err := resolver.Resolve(context.Background(), req, nil)
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	assert.Equal(t, []string{"ghost"}, dir.lookups)
}

func TestResolve_InactiveStatuses(t *testing.T) {
	for _, status := range []tenant.Status{tenant.StatusPending, tenant.StatusSuspended, tenant.StatusArchived} {
		dir := &stubDirectory{tenants: map[string]*tenant.Tenant{
			"acme": {ID: 1, ExternalID: "ext-1", Slug: "acme", Status: status},
		}}
		resolver := tenant.NewResolver(dir, nil)

		req := newRequest("opsapi.io")
		req.Header.Set(tenant.HeaderNamespaceSlug, "acme")

		_, err := resolver.Resolve(context.Background(), req, nil)
		var inaccessible *tenant.InaccessibleError
		require.ErrorAs(t, err, &inaccessible, "status %s", status)
		assert.Equal(t, status, inaccessible.Status)
	}
}

func TestResolve_Active(t *testing.T) {
	dir := &stubDirectory{tenants: map[string]*tenant.Tenant{
		"acme": activeTenant("ext-1", "acme"),
	}}
	resolver := tenant.NewResolver(dir, nil)

	got, err := resolver.Resolve(context.Background(), newRequest("acme.opsapi.io"), nil)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Slug)
}
