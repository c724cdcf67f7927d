package tenant

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/opsapi-io/opsapi/internal/auth"
)

// Resolution headers. Explicit headers always win over token hints and
// host parsing.
const (
	HeaderNamespaceID   = "X-Namespace-Id"
	HeaderNamespaceSlug = "X-Namespace-Slug"
)

// Directory is the lookup surface the resolver needs. *Store satisfies it.
type Directory interface {
	LookupByIDOrSlug(ctx context.Context, key string) (*Tenant, error)
}

// Resolver determines which tenant a request targets. Sources are
// consulted in strict priority order: the X-Namespace-Id header, the
// X-Namespace-Slug header, the token's tenant hint (ID before slug),
// and finally the left-most label of the Host. The first source that
// yields a candidate wins; later sources are never used as fallbacks
// when the winning candidate fails to resolve.
type Resolver struct {
	directory Directory
	reserved  map[string]struct{}
}

// NewResolver creates a resolver backed by the given directory. Labels
// in reserved never identify a tenant via the Host header; when empty,
// DefaultReservedLabels applies.
func NewResolver(directory Directory, reserved []string) *Resolver {
	if len(reserved) == 0 {
		reserved = DefaultReservedLabels
	}
	set := make(map[string]struct{}, len(reserved))
	for _, label := range reserved {
		set[strings.ToLower(label)] = struct{}{}
	}
	return &Resolver{directory: directory, reserved: set}
}

// Candidate returns the winning tenant reference for the request, or ""
// when no source yields one. identity may be nil (public browse).
func (r *Resolver) Candidate(req *http.Request, identity *auth.Identity) string {
	if id := strings.TrimSpace(req.Header.Get(HeaderNamespaceID)); id != "" {
		return id
	}
	if slug := strings.TrimSpace(req.Header.Get(HeaderNamespaceSlug)); slug != "" {
		return slug
	}
	if identity != nil {
		if identity.TenantID != "" {
			return identity.TenantID
		}
		if identity.TenantSlug != "" {
			return identity.TenantSlug
		}
	}
	return r.subdomain(req.Host)
}

// subdomain extracts the left-most host label, unless it is reserved or
// the host has no subdomain structure to speak of.
func (r *Resolver) subdomain(host string) string {
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	// A label only counts as a subdomain when a full domain follows it;
	// the left-most label of an apex host is the site itself.
	label, rest, found := strings.Cut(host, ".")
	if !found || !strings.Contains(rest, ".") {
		return ""
	}
	label = strings.ToLower(label)
	if _, ok := r.reserved[label]; ok {
		return ""
	}
	return label
}

// Resolve determines and loads the request's tenant. It returns
// ErrNoTenantContext when no source yields a candidate,
// ErrTenantNotFound when the candidate matches nothing, and
// *InaccessibleError when the tenant exists but is not active.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request, identity *auth.Identity) (*Tenant, error) {
	candidate := r.Candidate(req, identity)
	if candidate == "" {
		return nil, ErrNoTenantContext
	}
	t, err := r.directory.LookupByIDOrSlug(ctx, candidate)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusActive {
		return nil, &InaccessibleError{Status: t.Status}
	}
	return t, nil
}
