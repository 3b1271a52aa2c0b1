package tenantconn

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toke-hq/toke-backend/platform/go/credentials"
)

// DialPgx is the production DialFunc: a pgxpool with the registry's fixed
// bounds. The pool is not pinged here; the registry health-checks before
// caching so that a failed attempt is observable and never cached.
func DialPgx(ctx context.Context, cfg credentials.Config) (Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pgx pool config: %w", err)
	}

	poolConfig.MaxConns = poolMaxConns
	poolConfig.MinConns = poolMinConns
	poolConfig.MaxConnIdleTime = poolMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = dialTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
