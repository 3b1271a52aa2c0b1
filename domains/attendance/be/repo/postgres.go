package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/toke-hq/toke-backend/platform/go/persistence"
	"github.com/toke-hq/toke-backend/platform/go/tenantconn"
)

const tableTimeEntries = "time_entries"

// PostgresRepository stores attendance entries in the tenant database
// resolved from the request context on every call.
type PostgresRepository struct {
	registry *tenantconn.Registry
	store    *persistence.Store
}

// NewPostgresRepository constructs a PostgresRepository.
func NewPostgresRepository(registry *tenantconn.Registry) *PostgresRepository {
	if registry == nil {
		panic("attendance repository requires connection registry")
	}
	return &PostgresRepository{
		registry: registry,
		store:    persistence.NewStore(tableTimeEntries),
	}
}

func (r *PostgresRepository) Create(ctx context.Context, params CreateParams) (TimeEntry, error) {
	conn, err := r.registry.Get(ctx)
	if err != nil {
		return TimeEntry{}, err
	}

	values := map[string]any{
		"employee_id": params.EmployeeID,
		"clock_in_at": params.ClockInAt,
	}
	if params.SiteID != nil {
		values["site_id"] = *params.SiteID
	}
	if params.Note != nil {
		values["note"] = *params.Note
	}

	row, err := r.store.InsertOne(ctx, conn.Pool, values)
	if err != nil {
		return TimeEntry{}, fmt.Errorf("create time entry: %w", err)
	}
	return entryFromRow(row)
}

func (r *PostgresRepository) FindOpen(ctx context.Context, employeeID uuid.UUID) (TimeEntry, error) {
	conn, err := r.registry.Get(ctx)
	if err != nil {
		return TimeEntry{}, err
	}

	row, err := r.store.FindOne(ctx, conn.Pool, sq.Eq{"employee_id": employeeID, "clock_out_at": nil})
	if errors.Is(err, persistence.ErrNotFound) {
		return TimeEntry{}, ErrNotFound
	}
	if err != nil {
		return TimeEntry{}, fmt.Errorf("find open entry: %w", err)
	}
	return entryFromRow(row)
}

func (r *PostgresRepository) CloseEntry(ctx context.Context, id uuid.UUID, at time.Time) (TimeEntry, error) {
	conn, err := r.registry.Get(ctx)
	if err != nil {
		return TimeEntry{}, err
	}

	row, err := r.store.UpdateOne(ctx, conn.Pool,
		sq.Eq{"id": id, "clock_out_at": nil},
		map[string]any{"clock_out_at": at},
	)
	if errors.Is(err, persistence.ErrNotFound) {
		return TimeEntry{}, ErrNotFound
	}
	if err != nil {
		return TimeEntry{}, fmt.Errorf("close time entry: %w", err)
	}
	return entryFromRow(row)
}

func (r *PostgresRepository) List(ctx context.Context, params ListParams) ([]TimeEntry, error) {
	conn, err := r.registry.Get(ctx)
	if err != nil {
		return nil, err
	}

	where := sq.And{}
	if params.EmployeeID != nil {
		where = append(where, sq.Eq{"employee_id": *params.EmployeeID})
	}
	if params.From != nil {
		where = append(where, sq.GtOrEq{"clock_in_at": *params.From})
	}
	if params.To != nil {
		where = append(where, sq.Lt{"clock_in_at": *params.To})
	}

	var filter sq.Sqlizer
	if len(where) > 0 {
		filter = where
	}

	rows, err := r.store.FindPage(ctx, conn.Pool, filter, params.Limit, params.Offset, "clock_in_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}

	entries := make([]TimeEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := entryFromRow(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func entryFromRow(row persistence.Row) (TimeEntry, error) {
	id, err := persistence.RowUUID(row, "id")
	if err != nil {
		return TimeEntry{}, err
	}
	employeeID, err := persistence.RowUUID(row, "employee_id")
	if err != nil {
		return TimeEntry{}, err
	}
	siteID, err := persistence.RowUUIDPtr(row, "site_id")
	if err != nil {
		return TimeEntry{}, err
	}
	note, err := persistence.RowStringPtr(row, "note")
	if err != nil {
		return TimeEntry{}, err
	}
	clockIn, err := persistence.RowTime(row, "clock_in_at")
	if err != nil {
		return TimeEntry{}, err
	}
	clockOut, err := persistence.RowTimePtr(row, "clock_out_at")
	if err != nil {
		return TimeEntry{}, err
	}
	createdAt, err := persistence.RowTime(row, "created_at")
	if err != nil {
		return TimeEntry{}, err
	}

	return TimeEntry{
		ID:         id,
		EmployeeID: employeeID,
		SiteID:     siteID,
		Note:       note,
		ClockInAt:  clockIn,
		ClockOutAt: clockOut,
		CreatedAt:  createdAt,
	}, nil
}
