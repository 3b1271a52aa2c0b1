package directory

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGDirectory reads the tenants table in the master database.
type PGDirectory struct {
	pool *pgxpool.Pool
}

// NewPGDirectory constructs a PGDirectory over the master pool.
func NewPGDirectory(pool *pgxpool.Pool) *PGDirectory {
	if pool == nil {
		panic("directory: master pool is required")
	}
	return &PGDirectory{pool: pool}
}

// SubdomainForReference implements Directory. Inactive tenants resolve the
// same as missing ones.
func (d *PGDirectory) SubdomainForReference(ctx context.Context, reference string) (string, error) {
	query, args, err := psql.
		Select("subdomain").
		From("tenants").
		Where(sq.Eq{"reference": reference, "active": true}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build directory query: %w", err)
	}

	var subdomain string
	if err := d.pool.QueryRow(ctx, query, args...).Scan(&subdomain); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrUnknownReference
		}
		return "", fmt.Errorf("lookup reference %q: %w", reference, err)
	}
	return subdomain, nil
}
