// Package persistence provides the thin data-access layer the domain
// repositories build on: a master-pool constructor and a generic
// table-level store executing against whichever tenant connection the
// caller fetched from the registry.
package persistence

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a single-row operation matches nothing.
var ErrNotFound = errors.New("persistence: not found")

// Querier is the query surface shared by pgxpool.Pool and the registry's
// Pool interface.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Row is one result row keyed by column name.
type Row = map[string]any

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store executes CRUD-style statements against one table. It holds no
// connection: every call takes the Querier for the tenant the request is
// acting on, so a Store can be shared across tenants safely.
type Store struct {
	table string
}

// NewStore constructs a Store for table.
func NewStore(table string) *Store {
	if table == "" {
		panic("persistence: table name is required")
	}
	return &Store{table: table}
}

// FindOne returns the single row matching where, or ErrNotFound.
func (s *Store) FindOne(ctx context.Context, q Querier, where sq.Sqlizer) (Row, error) {
	query, args, err := psql.Select("*").From(s.table).Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", s.table, err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	return row, nil
}

// FindAll returns every row matching where, optionally ordered. A nil
// where selects the whole table.
func (s *Store) FindAll(ctx context.Context, q Querier, where sq.Sqlizer, orderBy ...string) ([]Row, error) {
	builder := psql.Select("*").From(s.table)
	if where != nil {
		builder = builder.Where(where)
	}
	if len(orderBy) > 0 {
		builder = builder.OrderBy(orderBy...)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", s.table, err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	return result, nil
}

// FindPage is FindAll with a limit/offset window.
func (s *Store) FindPage(ctx context.Context, q Querier, where sq.Sqlizer, limit, offset uint64, orderBy ...string) ([]Row, error) {
	builder := psql.Select("*").From(s.table)
	if where != nil {
		builder = builder.Where(where)
	}
	if len(orderBy) > 0 {
		builder = builder.OrderBy(orderBy...)
	}
	builder = builder.Limit(limit).Offset(offset)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select %s: %w", s.table, err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", s.table, err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	return result, nil
}

// InsertOne inserts values and returns the stored row.
func (s *Store) InsertOne(ctx context.Context, q Querier, values map[string]any) (Row, error) {
	query, args, err := psql.Insert(s.table).SetMap(values).Suffix("RETURNING *").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert %s: %w", s.table, err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", s.table, err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("scan inserted %s: %w", s.table, err)
	}
	return row, nil
}

// UpdateOne applies set to the rows matching where and returns the updated
// row, or ErrNotFound when nothing matched.
func (s *Store) UpdateOne(ctx context.Context, q Querier, where sq.Sqlizer, set map[string]any) (Row, error) {
	query, args, err := psql.Update(s.table).SetMap(set).Where(where).Suffix("RETURNING *").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update %s: %w", s.table, err)
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", s.table, err)
	}

	row, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan updated %s: %w", s.table, err)
	}
	return row, nil
}

// DeleteOne deletes the rows matching where; ErrNotFound when nothing
// matched.
func (s *Store) DeleteOne(ctx context.Context, q Querier, where sq.Sqlizer) error {
	query, args, err := psql.Delete(s.table).Where(where).ToSql()
	if err != nil {
		return fmt.Errorf("build delete %s: %w", s.table, err)
	}

	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
