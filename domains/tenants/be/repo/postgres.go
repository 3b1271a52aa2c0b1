package repo

import (
	"context"
	"errors"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toke-hq/toke-backend/platform/go/directory"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const tenantColumns = "id, reference, subdomain, display_name, active, created_at"

// PostgresRepository stores directory entries in the master database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository over the master pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("master pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Create(ctx context.Context, t directory.Tenant) (directory.Tenant, error) {
	query, args, err := psql.Insert("tenants").
		Columns("reference", "subdomain", "display_name").
		Values(t.Reference, t.Subdomain, t.DisplayName).
		Suffix("RETURNING " + tenantColumns).
		ToSql()
	if err != nil {
		return directory.Tenant{}, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return directory.Tenant{}, mapConflict(err)
	}
	out, err := pgx.CollectOneRow(rows, scanTenant)
	if err != nil {
		return directory.Tenant{}, mapConflict(err)
	}
	return out, nil
}

func (r *PostgresRepository) FindByReference(ctx context.Context, reference string) (directory.Tenant, error) {
	query, args, err := psql.Select(tenantColumns).
		From("tenants").
		Where(sq.Eq{"reference": reference}).
		ToSql()
	if err != nil {
		return directory.Tenant{}, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return directory.Tenant{}, err
	}
	out, err := pgx.CollectOneRow(rows, scanTenant)
	if errors.Is(err, pgx.ErrNoRows) {
		return directory.Tenant{}, ErrNotFound
	}
	if err != nil {
		return directory.Tenant{}, err
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]directory.Tenant, error) {
	builder := psql.Select(tenantColumns).
		From("tenants").
		OrderBy("created_at DESC")
	if opts.ActiveOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit)).Offset(uint64(opts.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanTenant)
}

func (r *PostgresRepository) SetActive(ctx context.Context, reference string, active bool) (directory.Tenant, error) {
	query, args, err := psql.Update("tenants").
		Set("active", active).
		Where(sq.Eq{"reference": reference}).
		Suffix("RETURNING " + tenantColumns).
		ToSql()
	if err != nil {
		return directory.Tenant{}, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return directory.Tenant{}, err
	}
	out, err := pgx.CollectOneRow(rows, scanTenant)
	if errors.Is(err, pgx.ErrNoRows) {
		return directory.Tenant{}, ErrNotFound
	}
	if err != nil {
		return directory.Tenant{}, err
	}
	return out, nil
}

func scanTenant(row pgx.CollectableRow) (directory.Tenant, error) {
	var t directory.Tenant
	err := row.Scan(&t.ID, &t.Reference, &t.Subdomain, &t.DisplayName, &t.Active, &t.CreatedAt)
	return t, err
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "reference"):
			return ErrConflictReference
		case strings.Contains(pgErr.ConstraintName, "subdomain"):
			return ErrConflictSubdomain
		}
	}
	return err
}

var _ Repository = (*PostgresRepository)(nil)
