package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

var ErrMemberDuplicate = errors.New("user is already a member of this tenant")

// MembershipStore handles membership database operations.
type MembershipStore struct {
	pool  *pgxpool.Pool
	roles *RoleStore
}

// NewMembershipStore creates a new membership store.
func NewMembershipStore(pool *pgxpool.Pool, roles *RoleStore) *MembershipStore {
	return &MembershipStore{pool: pool, roles: roles}
}

// Lookup retrieves the membership binding userID to tenantID, including
// its role assignments. The raw ownership flag is normalized here, at
// the storage boundary, and nowhere else: older rows encode it as the
// character 't' or the integer 1 rather than a boolean.
func (s *MembershipStore) Lookup(ctx context.Context, userID string, tenantID int64) (*Membership, error) {
	var m Membership
	var rawOwner any
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, tenant_id, COALESCE(email, ''), status, is_owner, created_at
		 FROM members WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID,
	).Scan(&m.ID, &m.UserID, &m.TenantID, &m.Email, &m.Status, &rawOwner, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("looking up membership: %w", err)
	}
	m.IsOwner = NormalizeOwnerFlag(rawOwner)

	roles, err := s.roles.ListForMember(ctx, m.TenantID, m.ID)
	if err != nil {
		return nil, err
	}
	m.Roles = roles

	return &m, nil
}

// Add provisions a membership in the given status. The default role for
// the tenant, if one exists, is assigned automatically.
func (s *MembershipStore) Add(ctx context.Context, userID string, tenantID int64, email string, status MembershipStatus, isOwner bool) (*Membership, error) {
	var m Membership
	var rawOwner any
	err := s.pool.QueryRow(ctx,
		`INSERT INTO members (user_id, tenant_id, email, status, is_owner)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5)
		 RETURNING id, user_id, tenant_id, COALESCE(email, ''), status, is_owner, created_at`,
		userID, tenantID, email, status, isOwner,
	).Scan(&m.ID, &m.UserID, &m.TenantID, &m.Email, &m.Status, &rawOwner, &m.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return nil, fmt.Errorf("%w: %s", ErrMemberDuplicate, userID)
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}
	m.IsOwner = NormalizeOwnerFlag(rawOwner)

	if defaultRole, err := s.roles.GetDefault(ctx, tenantID); err == nil {
		if err := s.roles.AssignToMember(ctx, m.ID, defaultRole.ID); err != nil {
			return nil, err
		}
		m.Roles = []Role{*defaultRole}
	} else if !errors.Is(err, ErrRoleNotFound) {
		return nil, err
	}

	return &m, nil
}

// List returns all memberships in a tenant with their role assignments.
func (s *MembershipStore) List(ctx context.Context, tenantID int64) ([]Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, tenant_id, COALESCE(email, ''), status, is_owner, created_at
		 FROM members WHERE tenant_id = $1 ORDER BY created_at`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var members []Membership
	for rows.Next() {
		var m Membership
		var rawOwner any
		if err := rows.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Email, &m.Status, &rawOwner, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		m.IsOwner = NormalizeOwnerFlag(rawOwner)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Role assignments are independent per member; fetch them
	// concurrently over the pool.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range members {
		g.Go(func() error {
			roles, err := s.roles.ListForMember(gctx, tenantID, members[i].ID)
			if err != nil {
				return err
			}
			members[i].Roles = roles
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return members, nil
}

// GetByID retrieves a membership by its row ID, scoped to a tenant. A
// membership belonging to another tenant is not found.
func (s *MembershipStore) GetByID(ctx context.Context, tenantID, membershipID int64) (*Membership, error) {
	var m Membership
	var rawOwner any
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, tenant_id, COALESCE(email, ''), status, is_owner, created_at
		 FROM members WHERE id = $1 AND tenant_id = $2`,
		membershipID, tenantID,
	).Scan(&m.ID, &m.UserID, &m.TenantID, &m.Email, &m.Status, &rawOwner, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("getting membership: %w", err)
	}
	m.IsOwner = NormalizeOwnerFlag(rawOwner)
	return &m, nil
}

// UpdateStatus transitions a membership's lifecycle status within a
// tenant; a membership ID from another tenant is not found. Removed
// memberships are retired this way, never hard-deleted.
func (s *MembershipStore) UpdateStatus(ctx context.Context, tenantID, membershipID int64, status MembershipStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE members SET status = $3 WHERE id = $1 AND tenant_id = $2`,
		membershipID, tenantID, status,
	)
	if err != nil {
		return fmt.Errorf("updating membership status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}
	return nil
}
