package tenant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/opsapi-io/opsapi/internal/platform/database"
	"github.com/opsapi-io/opsapi/internal/tenant"
)

func setupTestDB(t *testing.T) (*database.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("opsapi_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2),
		),
	)
	require.NoError(t, err)

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = database.RunMigrations(connStr, "file://../../migrations")
	require.NoError(t, err)

	pool, err := database.Connect(ctx, connStr, 5)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestStore_Create(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore(pool)
	ctx := context.Background()

	created, err := store.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ExternalID)
	assert.Equal(t, "Acme Corp", created.Name)
	assert.Equal(t, "acme-corp", created.Slug)
	assert.Equal(t, tenant.StatusPending, created.Status)

	// System roles are seeded with the tenant.
	roles, err := tenant.NewRoleStore(pool).List(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	names := []string{roles[0].Name, roles[1].Name, roles[2].Name}
	assert.ElementsMatch(t, []string{"admin", "editor", "viewer"}, names)
	for _, role := range roles {
		assert.True(t, role.IsSystem)
	}
}

func TestStore_Create_DuplicateSlug(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore(pool)
	ctx := context.Background()

	_, err := store.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)

	_, err = store.Create(ctx, "Acme Again", "acme-corp")
	assert.ErrorIs(t, err, tenant.ErrSlugTaken)
}

func TestStore_LookupByIDOrSlug(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore(pool)
	ctx := context.Background()

	created, err := store.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)

	bySlug, err := store.LookupByIDOrSlug(ctx, "acme-corp")
	require.NoError(t, err)
	assert.Equal(t, created.ExternalID, bySlug.ExternalID)

	byID, err := store.LookupByIDOrSlug(ctx, created.ExternalID)
	require.NoError(t, err)
	assert.Equal(t, "acme-corp", byID.Slug)

	_, err = store.LookupByIDOrSlug(ctx, "nope")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestStore_UpdateStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := tenant.NewStore(pool)
	ctx := context.Background()

	created, err := store.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)

	updated, err := store.UpdateStatus(ctx, created.ID, tenant.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusActive, updated.Status)
}

func TestMembershipStore_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tenantStore := tenant.NewStore(pool)
	roleStore := tenant.NewRoleStore(pool)
	memberStore := tenant.NewMembershipStore(pool, roleStore)

	created, err := tenantStore.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)

	// New members pick up the default viewer role.
	m, err := memberStore.Add(ctx, "user-1", created.ID, "jo@acme.test", tenant.MembershipInvited, false)
	require.NoError(t, err)
	assert.Equal(t, tenant.MembershipInvited, m.Status)
	assert.False(t, m.IsOwner)
	require.Len(t, m.Roles, 1)
	assert.Equal(t, "viewer", m.Roles[0].Name)

	_, err = memberStore.Add(ctx, "user-1", created.ID, "", tenant.MembershipActive, false)
	assert.ErrorIs(t, err, tenant.ErrMemberDuplicate)

	require.NoError(t, memberStore.UpdateStatus(ctx, created.ID, m.ID, tenant.MembershipActive))

	got, err := memberStore.Lookup(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.MembershipActive, got.Status)
	assert.False(t, got.IsOwner)
	require.Len(t, got.Roles, 1)
	assert.True(t, got.Roles[0].Permissions != nil)

	_, err = memberStore.Lookup(ctx, "stranger", created.ID)
	assert.ErrorIs(t, err, tenant.ErrMembershipNotFound)
}

func TestMembershipStore_CrossTenantIsolation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tenantStore := tenant.NewStore(pool)
	roleStore := tenant.NewRoleStore(pool)
	memberStore := tenant.NewMembershipStore(pool, roleStore)

	acme, err := tenantStore.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)
	globex, err := tenantStore.Create(ctx, "Globex", "globex")
	require.NoError(t, err)

	m, err := memberStore.Add(ctx, "user-1", globex.ID, "", tenant.MembershipInvited, false)
	require.NoError(t, err)

	// A membership ID is only reachable through its own tenant.
	err = memberStore.UpdateStatus(ctx, acme.ID, m.ID, tenant.MembershipActive)
	assert.ErrorIs(t, err, tenant.ErrMembershipNotFound)
	_, err = memberStore.GetByID(ctx, acme.ID, m.ID)
	assert.ErrorIs(t, err, tenant.ErrMembershipNotFound)

	got, err := memberStore.GetByID(ctx, globex.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.MembershipInvited, got.Status)

	// A foreign role assignment never surfaces in the member's role
	// list, even if the join row exists.
	foreign, err := roleStore.Create(ctx, acme.ID, "superuser", "Superuser", map[string][]string{
		"organization": {"manage"},
	}, 90)
	require.NoError(t, err)
	require.NoError(t, roleStore.AssignToMember(ctx, m.ID, foreign.ID))

	roles, err := roleStore.ListForMember(ctx, globex.ID, m.ID)
	require.NoError(t, err)
	for _, r := range roles {
		assert.Equal(t, globex.ID, r.TenantID)
		assert.NotEqual(t, "superuser", r.Name)
	}
}

func TestMembershipStore_OwnerFlagRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tenantStore := tenant.NewStore(pool)
	roleStore := tenant.NewRoleStore(pool)
	memberStore := tenant.NewMembershipStore(pool, roleStore)

	created, err := tenantStore.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)

	owner, err := memberStore.Add(ctx, "founder", created.ID, "", tenant.MembershipActive, true)
	require.NoError(t, err)
	assert.True(t, owner.IsOwner)

	got, err := memberStore.Lookup(ctx, "founder", created.ID)
	require.NoError(t, err)
	assert.True(t, got.IsOwner)
}

func TestRoleStore_CustomRoles(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	tenantStore := tenant.NewStore(pool)
	roleStore := tenant.NewRoleStore(pool)
	memberStore := tenant.NewMembershipStore(pool, roleStore)

	created, err := tenantStore.Create(ctx, "Acme Corp", "acme-corp")
	require.NoError(t, err)

	role, err := roleStore.Create(ctx, created.ID, "support", "Support", map[string][]string{
		"orders": {"read", "update"},
	}, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "update"}, role.Permissions["orders"])

	_, err = roleStore.Create(ctx, created.ID, "support", "Support Again", nil, 0)
	assert.ErrorIs(t, err, tenant.ErrRoleDuplicate)

	m, err := memberStore.Add(ctx, "user-1", created.ID, "", tenant.MembershipActive, false)
	require.NoError(t, err)

	require.NoError(t, roleStore.AssignToMember(ctx, m.ID, role.ID))
	// Assigning twice is a no-op.
	require.NoError(t, roleStore.AssignToMember(ctx, m.ID, role.ID))

	got, err := memberStore.Lookup(ctx, "user-1", created.ID)
	require.NoError(t, err)
	assert.Len(t, got.Roles, 2) // viewer (default) + support

	require.NoError(t, roleStore.RemoveFromMember(ctx, m.ID, role.ID))
	require.NoError(t, roleStore.Delete(ctx, created.ID, role.ID))

	// System roles stay immutable.
	roles, err := roleStore.List(ctx, created.ID)
	require.NoError(t, err)
	for _, r := range roles {
		err := roleStore.Delete(ctx, created.ID, r.ID)
		assert.ErrorIs(t, err, tenant.ErrRoleIsSystem, "role %s", r.Name)
	}
}
