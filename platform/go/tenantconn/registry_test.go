package tenantconn

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/toke-hq/toke-backend/platform/go/credentials"
	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

type fakePool struct {
	pingErr error
	closed  bool
}

func (f *fakePool) Ping(context.Context) error { return f.pingErr }
func (f *fakePool) Close()                     { f.closed = true }
func (f *fakePool) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not used in registry tests")
}
func (f *fakePool) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not used in registry tests")
}
func (f *fakePool) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not used in registry tests")
}

type staticCreds struct{}

func (staticCreds) Resolve(_ context.Context, key tenant.Key) (credentials.Config, error) {
	return credentials.Config{
		Host:     key.String() + "-db.internal",
		Port:     "5432",
		Username: "toke",
		Password: "s3cret",
		Database: "toke_" + key.String(),
	}, nil
}

type countingDialer struct {
	mu    sync.Mutex
	calls int
	next  func() (Pool, error)
}

func (d *countingDialer) dial(context.Context, credentials.Config) (Pool, error) {
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()
	if d.next != nil {
		return d.next()
	}
	return &fakePool{}, nil
}

func (d *countingDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func newTestRegistry(dial DialFunc) *Registry {
	return NewRegistry(Config{Credentials: staticCreds{}, Dial: dial})
}

func TestGetForTenantCachesConnection(t *testing.T) {
	t.Parallel()

	dialer := &countingDialer{}
	reg := newTestRegistry(dialer.dial)
	ctx := context.Background()

	first, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)
	second, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, dialer.count())
	require.Equal(t, tenant.Key("acme"), first.Key)
	require.False(t, first.EstablishedAt.IsZero())
}

func TestGetForTenantIsolatesTenants(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry((&countingDialer{}).dial)
	ctx := context.Background()

	a, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)
	b, err := reg.GetForTenant(ctx, "beta")
	require.NoError(t, err)

	require.NotSame(t, a, b)
	require.NotSame(t, a.Pool, b.Pool)
}

func TestGetRequiresTenantInContext(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry((&countingDialer{}).dial)

	_, err := reg.Get(context.Background())
	require.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestGetUsesContextTenant(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry((&countingDialer{}).dial)
	ctx := tenant.WithKey(context.Background(), "acme")

	conn, err := reg.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, tenant.Key("acme"), conn.Key)
}

func TestPingFailureIsNotCached(t *testing.T) {
	t.Parallel()

	bad := &fakePool{pingErr: errors.New("auth failed")}
	dialer := &countingDialer{next: func() (Pool, error) { return bad, nil }}
	reg := newTestRegistry(dialer.dial)
	ctx := context.Background()

	_, err := reg.GetForTenant(ctx, "acme")
	require.Error(t, err)

	var connectErr *ConnectError
	require.True(t, errors.As(err, &connectErr))
	require.Equal(t, tenant.Key("acme"), connectErr.Key)
	require.True(t, bad.closed, "failed pool must be closed")

	// Next call retries from scratch and succeeds.
	dialer.next = func() (Pool, error) { return &fakePool{}, nil }
	conn, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)
	require.NotNil(t, conn)
	require.Equal(t, 2, dialer.count())
}

type failingCreds struct{}

func (failingCreds) Resolve(_ context.Context, key tenant.Key) (credentials.Config, error) {
	return credentials.Config{}, &credentials.MissingError{Key: key, Variable: "TENANT_ACME_DB_HOST", Fallback: "DB_HOST"}
}

func TestCredentialFailurePropagatesWithoutDialing(t *testing.T) {
	t.Parallel()

	dialer := &countingDialer{}
	reg := NewRegistry(Config{Credentials: failingCreds{}, Dial: dialer.dial})

	_, err := reg.GetForTenant(context.Background(), "acme")
	require.Error(t, err)

	var missing *credentials.MissingError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, 0, dialer.count())
}

func TestCloseEvicts(t *testing.T) {
	t.Parallel()

	dialer := &countingDialer{}
	reg := newTestRegistry(dialer.dial)
	ctx := context.Background()

	first, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)

	reg.Close("acme")
	require.True(t, first.Pool.(*fakePool).closed)

	// Closing an absent key is a no-op.
	reg.Close("acme")

	second, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)
	require.NotSame(t, first, second)
	require.Equal(t, 2, dialer.count())
}

func TestCloseAll(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry((&countingDialer{}).dial)
	ctx := context.Background()

	a, err := reg.GetForTenant(ctx, "acme")
	require.NoError(t, err)
	b, err := reg.GetForTenant(ctx, "beta")
	require.NoError(t, err)

	reg.CloseAll()
	require.True(t, a.Pool.(*fakePool).closed)
	require.True(t, b.Pool.(*fakePool).closed)
}

func TestConcurrentFirstRequestsShareOneDial(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	dialer := &countingDialer{next: func() (Pool, error) {
		<-release
		return &fakePool{}, nil
	}}
	reg := newTestRegistry(dialer.dial)
	ctx := context.Background()

	const workers = 16
	conns := make([]*Conn, workers)
	errs := make([]error, workers)

	var start, done sync.WaitGroup
	start.Add(workers)
	done.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer done.Done()
			start.Done()
			start.Wait()
			conns[i], errs[i] = reg.GetForTenant(ctx, "acme")
		}(i)
	}

	start.Wait()
	close(release)
	done.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.Same(t, conns[0], conns[i])
	}
	require.Equal(t, 1, dialer.count())
}
