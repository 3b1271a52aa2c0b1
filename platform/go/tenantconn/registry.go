package tenantconn

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/toke-hq/toke-backend/platform/go/credentials"
	"github.com/toke-hq/toke-backend/platform/go/metrics"
	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

// Pool bounds for every tenant pool. Kept small on purpose: with one pool
// per tenant, per-pool limits are what keep total resource usage bounded
// under multi-tenant fan-out.
const (
	poolMaxConns    = 5
	poolMinConns    = 0
	poolMaxIdleTime = 10 * time.Second
	dialTimeout     = 30 * time.Second
)

// DialFunc builds a live pool from resolved credentials. The default dials
// Postgres through pgxpool; tests substitute fakes.
type DialFunc func(ctx context.Context, cfg credentials.Config) (Pool, error)

// Config wires a Registry.
type Config struct {
	// Credentials resolves connection parameters per tenant. Required.
	Credentials credentials.Provider
	// Dial overrides the pool constructor. Defaults to the pgxpool dialer.
	Dial DialFunc
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.ConnectionMetrics
}

// Registry caches one live connection per tenant key. Cache population is
// deduplicated per key, so concurrent first requests for an unseen tenant
// share a single dial attempt. Failed attempts are never cached; the next
// call resolves credentials and dials from scratch.
type Registry struct {
	creds   credentials.Provider
	dial    DialFunc
	logger  *zap.Logger
	metrics *metrics.ConnectionMetrics

	group singleflight.Group

	mu    sync.RWMutex
	conns map[tenant.Key]*Conn
}

// NewRegistry constructs a Registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.Credentials == nil {
		panic("tenantconn: credentials provider is required")
	}
	if cfg.Dial == nil {
		cfg.Dial = DialPgx
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Registry{
		creds:   cfg.Credentials,
		dial:    cfg.Dial,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		conns:   make(map[tenant.Key]*Conn),
	}
}

// Get resolves the current tenant from ctx and returns its connection.
// Fails with tenant.ErrNoTenant when no middleware established a tenant:
// defaulting here would be a cross-tenant leak, so the error is fatal to
// the operation.
func (r *Registry) Get(ctx context.Context) (*Conn, error) {
	key, err := tenant.RequireKey(ctx)
	if err != nil {
		return nil, err
	}
	return r.GetForTenant(ctx, key)
}

// GetForTenant returns the cached connection for key, establishing it on
// first use. Sequential calls for the same key return the identical *Conn
// until Close or CloseAll evicts it; no freshness check or TTL applies.
func (r *Registry) GetForTenant(ctx context.Context, key tenant.Key) (*Conn, error) {
	r.mu.RLock()
	conn, ok := r.conns[key]
	r.mu.RUnlock()
	if ok {
		if r.metrics != nil {
			r.metrics.CacheHits.Inc()
		}
		return conn, nil
	}

	if r.metrics != nil {
		r.metrics.CacheMisses.Inc()
	}

	v, err, _ := r.group.Do(string(key), func() (any, error) {
		return r.establish(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Conn), nil
}

// establish runs inside the single-flight group, so at most one dial per
// key is in flight. A concurrent winner may already have populated the
// cache by the time a queued call runs, hence the re-check.
func (r *Registry) establish(ctx context.Context, key tenant.Key) (*Conn, error) {
	r.mu.RLock()
	conn, ok := r.conns[key]
	r.mu.RUnlock()
	if ok {
		return conn, nil
	}

	cfg, err := r.creds.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	pool, err := r.dial(dialCtx, cfg)
	if err != nil {
		if r.metrics != nil {
			r.metrics.DialFailures.Inc()
		}
		return nil, &ConnectError{Key: key, Err: err}
	}

	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		if r.metrics != nil {
			r.metrics.DialFailures.Inc()
		}
		return nil, &ConnectError{Key: key, Err: err}
	}

	conn = &Conn{Key: key, Pool: pool, EstablishedAt: time.Now()}

	r.mu.Lock()
	r.conns[key] = conn
	open := len(r.conns)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.OpenPools.Set(float64(open))
	}
	r.logger.Info("tenant connection established", zap.String("tenant", key.String()))

	return conn, nil
}

// Close shuts down and evicts the connection for key; no-op when absent.
func (r *Registry) Close(key tenant.Key) {
	r.mu.Lock()
	conn, ok := r.conns[key]
	delete(r.conns, key)
	open := len(r.conns)
	r.mu.Unlock()

	if !ok {
		return
	}
	conn.Pool.Close()
	if r.metrics != nil {
		r.metrics.OpenPools.Set(float64(open))
	}
	r.logger.Info("tenant connection closed", zap.String("tenant", key.String()))
}

// CloseAll shuts down and evicts every cached connection. Used at process
// shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[tenant.Key]*Conn)
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Pool.Close()
	}
	if r.metrics != nil {
		r.metrics.OpenPools.Set(0)
	}
}
