package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry matches.
var ErrNotFound = errors.New("attendance: entry not found")

// TimeEntry is the stored form of one attendance record.
type TimeEntry struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	SiteID     *uuid.UUID
	Note       *string
	ClockInAt  time.Time
	ClockOutAt *time.Time
	CreatedAt  time.Time
}

// CreateParams describes a new entry.
type CreateParams struct {
	EmployeeID uuid.UUID
	SiteID     *uuid.UUID
	Note       *string
	ClockInAt  time.Time
}

// ListParams filters and pages entry listings.
type ListParams struct {
	EmployeeID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      uint64
	Offset     uint64
}

// Repository defines the storage operations for attendance entries. All
// methods act on the tenant carried by ctx.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (TimeEntry, error)
	FindOpen(ctx context.Context, employeeID uuid.UUID) (TimeEntry, error)
	CloseEntry(ctx context.Context, id uuid.UUID, at time.Time) (TimeEntry, error)
	List(ctx context.Context, params ListParams) ([]TimeEntry, error)
}
