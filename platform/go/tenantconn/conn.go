// Package tenantconn maintains the process-wide registry of per-tenant
// database connections: one bounded pgx pool per tenant key, created lazily
// on first use, health-checked before caching, and reused until explicitly
// closed. Which tenant a request acts on travels on the request context
// (package tenant); the registry itself never tracks a "current" tenant.
package tenantconn

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

// Pool is the slice of pgxpool.Pool behaviour the registry and the data
// access layer depend on. Narrowing it keeps registry unit tests off a real
// database.
type Pool interface {
	Ping(ctx context.Context) error
	Close()
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Conn is one live cached connection to a tenant database. Exclusively
// owned by the registry; callers fetch it through the registry on every use
// and must not hold long-lived references.
type Conn struct {
	Key           tenant.Key
	Pool          Pool
	EstablishedAt time.Time
}

// ConnectError wraps the driver failure behind establishing or
// health-checking a tenant connection. Auth failures and unreachable hosts
// are reported identically; callers only need to know the tenant is not
// reachable right now.
type ConnectError struct {
	Key tenant.Key
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("tenantconn: connect tenant %q: %v", e.Key, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }
