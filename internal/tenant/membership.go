package tenant

import (
	"errors"
	"time"
)

var ErrMembershipNotFound = errors.New("access denied to this tenant")

// MembershipStatus is the lifecycle status of a user's membership in a
// tenant. Anything other than active means no access, ownership flag
// included.
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipInvited   MembershipStatus = "invited"
	MembershipSuspended MembershipStatus = "suspended"
	MembershipRemoved   MembershipStatus = "removed"
)

// Membership binds one identity to one tenant.
type Membership struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	TenantID  int64            `json:"-"`
	Email     string           `json:"email,omitempty"`
	Status    MembershipStatus `json:"status"`
	IsOwner   bool             `json:"is_owner"`
	Roles     []Role           `json:"roles,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NormalizeOwnerFlag coerces the raw storage encoding of the ownership
// flag to a boolean. Depending on the storage layer the flag arrives as
// a boolean, the Postgres character 't', or the integer 1. This is the
// only place the raw value is interpreted; every consumer downstream
// sees a clean boolean.
func NormalizeOwnerFlag(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		return v == "t"
	case []byte:
		return len(v) == 1 && v[0] == 't'
	case int:
		return v == 1
	case int16:
		return v == 1
	case int32:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	default:
		return false
	}
}
