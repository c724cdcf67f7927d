package authz

import "github.com/opsapi-io/opsapi/internal/tenant"

// ActionManage is the sentinel action implying every action on its
// module.
const ActionManage = "manage"

// ActionSet is the set of actions granted on one module.
type ActionSet map[string]struct{}

// PermissionSet maps module names to the union of actions granted on
// them across all of a member's roles.
type PermissionSet map[string]ActionSet

// Compute unions module permissions across the given roles. Roles are
// purely additive: a role that omits an action can never subtract it
// from another role's grant, and role priority plays no part here.
func Compute(roles []tenant.Role) PermissionSet {
	set := make(PermissionSet)
	for _, role := range roles {
		for module, actions := range role.Permissions {
			granted, ok := set[module]
			if !ok {
				granted = make(ActionSet)
				set[module] = granted
			}
			for _, action := range actions {
				granted[action] = struct{}{}
			}
		}
	}
	return set
}

// Allows reports whether the set grants action on module, either
// directly or through the manage sentinel. Modules absent from the set
// grant nothing.
func (p PermissionSet) Allows(module, action string) bool {
	granted, ok := p[module]
	if !ok {
		return false
	}
	if _, ok := granted[ActionManage]; ok {
		return true
	}
	_, ok = granted[action]
	return ok
}

// Modules returns the module names present in the set.
func (p PermissionSet) Modules() []string {
	modules := make([]string, 0, len(p))
	for module := range p {
		modules = append(modules, module)
	}
	return modules
}
