package tenant

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	ErrTenantNotFound  = errors.New("tenant not found")
	ErrNoTenantContext = errors.New("no tenant context")
	ErrSlugTaken       = errors.New("tenant slug already in use")
	ErrInvalidSlug     = errors.New("invalid tenant slug")
)

// Status is a tenant lifecycle status. Only active tenants may be the
// target of an authorized operation.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusArchived  Status = "archived"
)

// Tenant represents one customer namespace.
type Tenant struct {
	ID         int64     `json:"-"`
	ExternalID string    `json:"id"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// InaccessibleError is returned when a tenant exists but its lifecycle
// status forbids access. The status is carried for diagnostics; it is
// the evaluated tenant's own status, never another tenant's data.
type InaccessibleError struct {
	Status Status
}

func (e *InaccessibleError) Error() string {
	return fmt.Sprintf("tenant not accessible: status %s", e.Status)
}

// DefaultReservedLabels are host labels that never identify a tenant.
// Deployments extend the list through server.reserved_subdomains.
var DefaultReservedLabels = []string{"www", "api", "localhost", "dashboard"}

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,61}[a-z0-9]$`)

// ValidateSlug checks that a slug conforms to DNS label rules and is
// not a reserved platform label.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: must be 3-63 lowercase alphanumeric characters or hyphens, cannot start/end with hyphen", ErrInvalidSlug)
	}
	for _, reserved := range DefaultReservedLabels {
		if slug == reserved {
			return fmt.Errorf("%w: %q is reserved", ErrInvalidSlug, slug)
		}
	}
	return nil
}
