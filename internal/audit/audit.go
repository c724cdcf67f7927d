// Package audit records authorization-relevant actions out of band.
// Logging never blocks or fails a request.
package audit

import "context"

// Event represents a single auditable action in the system.
type Event struct {
	TenantID int64
	UserID   string // empty for system or anonymous events
	Action   string // e.g. "access.denied", "tenant.created"
	Module   string // permission module involved, if any
	Metadata map[string]any
	Source   string // "api", "system"
}

const (
	ActionAccessDenied = "access.denied"

	ActionTenantCreated  = "tenant.created"
	ActionTenantArchived = "tenant.archived"

	ActionMemberInvited       = "member.invited"
	ActionMemberStatusChanged = "member.status_changed"

	ActionRoleCreated  = "role.created"
	ActionRoleDeleted  = "role.deleted"
	ActionRoleAssigned = "role.assigned"
	ActionRoleRevoked  = "role.revoked"
)

// Logger is the audit logging interface. Log is fire-and-forget.
type Logger interface {
	Log(ctx context.Context, event Event)
	Close() error
}

// NopLogger is a no-op audit logger for testing and when audit is disabled.
type NopLogger struct{}

func (NopLogger) Log(context.Context, Event) {}
func (NopLogger) Close() error               { return nil }
