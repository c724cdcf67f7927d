package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoleStore handles role database operations. Permission maps are stored
// as JSONB and decoded here; nothing downstream touches raw JSON.
type RoleStore struct {
	pool *pgxpool.Pool
}

// NewRoleStore creates a new role store.
func NewRoleStore(pool *pgxpool.Pool) *RoleStore {
	return &RoleStore{pool: pool}
}

const roleColumns = `id, tenant_id, name, display_name, permissions, is_system, is_default, priority, created_at`

func scanRole(row pgx.Row) (*Role, error) {
	var r Role
	var permsJSON []byte
	err := row.Scan(&r.ID, &r.TenantID, &r.Name, &r.DisplayName, &permsJSON, &r.IsSystem, &r.IsDefault, &r.Priority, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(permsJSON) > 0 {
		if err := json.Unmarshal(permsJSON, &r.Permissions); err != nil {
			return nil, fmt.Errorf("decoding role permissions: %w", err)
		}
	}
	return &r, nil
}

// Create inserts a custom role in the given tenant.
func (s *RoleStore) Create(ctx context.Context, tenantID int64, name, displayName string, permissions map[string][]string, priority int) (*Role, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrRoleNameEmpty
	}
	if permissions == nil {
		permissions = map[string][]string{}
	}
	permsJSON, err := json.Marshal(permissions)
	if err != nil {
		return nil, fmt.Errorf("encoding role permissions: %w", err)
	}

	role, err := scanRole(s.pool.QueryRow(ctx,
		`INSERT INTO roles (tenant_id, name, display_name, permissions, priority)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+roleColumns,
		tenantID, name, displayName, permsJSON, priority,
	))
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return nil, fmt.Errorf("%w: %s", ErrRoleDuplicate, name)
		}
		return nil, fmt.Errorf("creating role: %w", err)
	}
	return role, nil
}

// GetByID retrieves a role scoped to a tenant.
func (s *RoleStore) GetByID(ctx context.Context, tenantID, roleID int64) (*Role, error) {
	role, err := scanRole(s.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1 AND tenant_id = $2`,
		roleID, tenantID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("getting role: %w", err)
	}
	return role, nil
}

// GetDefault retrieves the tenant's default role, if one is marked.
func (s *RoleStore) GetDefault(ctx context.Context, tenantID int64) (*Role, error) {
	role, err := scanRole(s.pool.QueryRow(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE tenant_id = $1 AND is_default ORDER BY priority DESC LIMIT 1`,
		tenantID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("getting default role: %w", err)
	}
	return role, nil
}

// List returns all roles in a tenant, highest priority first.
func (s *RoleStore) List(ctx context.Context, tenantID int64) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles
		 WHERE tenant_id = $1 ORDER BY priority DESC, name`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()
	return collectRoles(rows)
}

// ListForMember returns the roles assigned to a membership, highest
// priority first. Ordering is cosmetic; permission evaluation unions
// over the whole set regardless. The tenant filter keeps a stray
// cross-tenant assignment row from ever granting foreign permissions.
func (s *RoleStore) ListForMember(ctx context.Context, tenantID, membershipID int64) ([]Role, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT r.id, r.tenant_id, r.name, r.display_name, r.permissions, r.is_system, r.is_default, r.priority, r.created_at
		 FROM roles r
		 JOIN member_roles mr ON mr.role_id = r.id
		 WHERE mr.member_id = $1 AND r.tenant_id = $2
		 ORDER BY r.priority DESC, r.name`,
		membershipID, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing member roles: %w", err)
	}
	defer rows.Close()
	return collectRoles(rows)
}

func collectRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning role: %w", err)
		}
		roles = append(roles, *role)
	}
	return roles, rows.Err()
}

// AssignToMember grants a role to a membership. Assigning an already
// held role is a no-op.
func (s *RoleStore) AssignToMember(ctx context.Context, membershipID, roleID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO member_roles (member_id, role_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		membershipID, roleID,
	)
	if err != nil {
		return fmt.Errorf("assigning role: %w", err)
	}
	return nil
}

// RemoveFromMember revokes a role from a membership.
func (s *RoleStore) RemoveFromMember(ctx context.Context, membershipID, roleID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM member_roles WHERE member_id = $1 AND role_id = $2`,
		membershipID, roleID,
	)
	if err != nil {
		return fmt.Errorf("removing role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// Delete removes a custom role and its assignments. System roles are
// immutable.
func (s *RoleStore) Delete(ctx context.Context, tenantID, roleID int64) error {
	role, err := s.GetByID(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return ErrRoleIsSystem
	}
	_, err = s.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1 AND tenant_id = $2`, roleID, tenantID)
	if err != nil {
		return fmt.Errorf("deleting role: %w", err)
	}
	return nil
}
