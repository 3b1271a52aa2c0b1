package persistence

import (
	"context"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	sqlassets "github.com/toke-hq/toke-backend/database"
	"github.com/toke-hq/toke-backend/platform/go/credentials"
	"github.com/toke-hq/toke-backend/platform/go/tenant"
	"github.com/toke-hq/toke-backend/platform/go/tenantconn"
)

// containerCreds resolves every tenant key to the test container, mimicking
// the shared-infrastructure fallback of the env provider.
type containerCreds struct {
	cfg credentials.Config
}

func (c containerCreds) Resolve(context.Context, tenant.Key) (credentials.Config, error) {
	return c.cfg, nil
}

func TestStoreAgainstTenantRegistry(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping store integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("toke"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	creds := containerCreds{cfg: credentials.Config{
		Host:     host,
		Port:     port.Port(),
		Username: "postgres",
		Password: "postgres",
		Database: "toke",
	}}

	reg := tenantconn.NewRegistry(tenantconn.Config{Credentials: creds})
	t.Cleanup(reg.CloseAll)

	conn, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)

	// Cache identity holds through the real dialer too.
	again, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)
	require.Same(t, conn, again)

	_, err = conn.Pool.Exec(ctx, sqlassets.TimeEntriesSQL)
	require.NoError(t, err)

	store := NewStore("time_entries")
	employeeID := uuid.New()

	inserted, err := store.InsertOne(ctx, conn.Pool, map[string]any{
		"employee_id": employeeID,
		"note":        "morning shift",
	})
	require.NoError(t, err)

	entryID, err := RowUUID(inserted, "id")
	require.NoError(t, err)
	clockIn, err := RowTime(inserted, "clock_in_at")
	require.NoError(t, err)
	require.False(t, clockIn.IsZero())

	open, err := store.FindOne(ctx, conn.Pool, sq.Eq{"employee_id": employeeID, "clock_out_at": nil})
	require.NoError(t, err)
	openID, err := RowUUID(open, "id")
	require.NoError(t, err)
	require.Equal(t, entryID, openID)

	closedAt := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := store.UpdateOne(ctx, conn.Pool,
		sq.Eq{"id": entryID},
		map[string]any{"clock_out_at": closedAt},
	)
	require.NoError(t, err)
	clockOut, err := RowTimePtr(updated, "clock_out_at")
	require.NoError(t, err)
	require.NotNil(t, clockOut)
	require.WithinDuration(t, closedAt, *clockOut, time.Second)

	all, err := store.FindAll(ctx, conn.Pool, sq.Eq{"employee_id": employeeID}, "clock_in_at DESC")
	require.NoError(t, err)
	require.Len(t, all, 1)

	_, err = store.FindOne(ctx, conn.Pool, sq.Eq{"employee_id": employeeID, "clock_out_at": nil})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.DeleteOne(ctx, conn.Pool, sq.Eq{"id": entryID}))
	require.ErrorIs(t, store.DeleteOne(ctx, conn.Pool, sq.Eq{"id": entryID}), ErrNotFound)
}
