package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store handles tenant database operations.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new tenant store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const tenantColumns = `id, external_id, name, slug, status, created_at, updated_at`

// systemRoles are seeded into every new tenant. The admin role manages
// the organization module, which is what RequireAdmin checks; viewer is
// the default role for newly accepted members.
var systemRoles = []struct {
	name        string
	displayName string
	permissions string
	isDefault   bool
	priority    int
}{
	{"admin", "Administrator", `{"organization": ["manage"], "members": ["manage"]}`, false, 100},
	{"editor", "Editor", `{"members": ["read"], "products": ["read", "create", "update"], "orders": ["read", "update"]}`, false, 50},
	{"viewer", "Viewer", `{"members": ["read"], "products": ["read"], "orders": ["read"]}`, true, 10},
}

// Create inserts a new tenant with the given name and slug, seeding its
// system roles in the same transaction. New tenants start in pending
// status until provisioning completes.
func (s *Store) Create(ctx context.Context, name, slug string) (*Tenant, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning tenant create: %w", err)
	}
	defer tx.Rollback(ctx)

	var t Tenant
	err = tx.QueryRow(ctx,
		`INSERT INTO tenants (external_id, name, slug) VALUES ($1, $2, $3)
		 RETURNING `+tenantColumns,
		uuid.NewString(), name, slug,
	).Scan(&t.ID, &t.ExternalID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return nil, fmt.Errorf("%w: %s", ErrSlugTaken, slug)
		}
		return nil, fmt.Errorf("creating tenant: %w", err)
	}

	for _, role := range systemRoles {
		_, err = tx.Exec(ctx,
			`INSERT INTO roles (tenant_id, name, display_name, permissions, is_system, is_default, priority)
			 VALUES ($1, $2, $3, $4, TRUE, $5, $6)`,
			t.ID, role.name, role.displayName, role.permissions, role.isDefault, role.priority,
		)
		if err != nil {
			return nil, fmt.Errorf("seeding system role %s: %w", role.name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing tenant create: %w", err)
	}
	return &t, nil
}

// LookupByIDOrSlug retrieves a tenant by external UUID or slug; either
// form is accepted transparently.
func (s *Store) LookupByIDOrSlug(ctx context.Context, key string) (*Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants WHERE external_id::text = $1 OR slug = $1`,
		key,
	).Scan(&t.ID, &t.ExternalID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("looking up tenant: %w", err)
	}
	return &t, nil
}

// GetByExternalID retrieves a tenant by its external UUID.
func (s *Store) GetByExternalID(ctx context.Context, externalID string) (*Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants WHERE external_id::text = $1`,
		externalID,
	).Scan(&t.ID, &t.ExternalID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("getting tenant: %w", err)
	}
	return &t, nil
}

// List returns all tenants.
func (s *Store) List(ctx context.Context) ([]Tenant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+`
		 FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.ExternalID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// UpdateStatus transitions a tenant's lifecycle status.
func (s *Store) UpdateStatus(ctx context.Context, tenantID int64, status Status) (*Tenant, error) {
	var t Tenant
	err := s.pool.QueryRow(ctx,
		`UPDATE tenants SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+tenantColumns,
		tenantID, status,
	).Scan(&t.ID, &t.ExternalID, &t.Name, &t.Slug, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("updating tenant status: %w", err)
	}
	return &t, nil
}
