package tenant

import (
	"errors"
	"time"
)

var (
	ErrRoleNotFound  = errors.New("role not found")
	ErrRoleNameEmpty = errors.New("role name is required")
	ErrRoleDuplicate = errors.New("role name already exists in tenant")
	ErrRoleIsSystem  = errors.New("system roles cannot be modified")
)

// Role is a named, tenant-scoped bundle of module permissions.
// Identical names in different tenants are independent roles.
type Role struct {
	ID          int64  `json:"id"`
	TenantID    int64  `json:"-"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	// Permissions maps a module name to its allowed actions. The map is
	// decoded from JSONB at the store boundary and nowhere else. The
	// action "manage" implies every action on its module.
	Permissions map[string][]string `json:"permissions"`
	IsSystem    bool                `json:"is_system"`
	IsDefault   bool                `json:"is_default"`
	// Priority orders roles for display (which role is "primary").
	// It never affects the permission union.
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}
