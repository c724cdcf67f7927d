package authz

import (
	"context"
	"fmt"

	"github.com/opsapi-io/opsapi/internal/tenant"
)

// MembershipDirectory is the lookup surface the validator needs.
// *tenant.MembershipStore satisfies it.
type MembershipDirectory interface {
	Lookup(ctx context.Context, userID string, tenantID int64) (*tenant.Membership, error)
}

// MembershipInactiveError is returned when a membership exists but its
// lifecycle status forbids access. Invited, suspended, and removed all
// deny equally; ownership does not override.
type MembershipInactiveError struct {
	Status tenant.MembershipStatus
}

func (e *MembershipInactiveError) Error() string {
	return fmt.Sprintf("membership not active: status %s", e.Status)
}

// ValidateMembership confirms that the user belongs to the tenant and
// that the membership is active. It returns
// tenant.ErrMembershipNotFound when no membership exists and
// *MembershipInactiveError when one exists in a non-active status.
func ValidateMembership(ctx context.Context, directory MembershipDirectory, userID string, t *tenant.Tenant) (*tenant.Membership, error) {
	m, err := directory.Lookup(ctx, userID, t.ID)
	if err != nil {
		return nil, err
	}
	if m.Status != tenant.MembershipActive {
		return nil, &MembershipInactiveError{Status: m.Status}
	}
	return m, nil
}
