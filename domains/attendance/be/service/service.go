package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/toke-hq/toke-backend/domains/attendance/be/repo"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrAlreadyClockedIn = errors.New("employee already has an open entry")
	ErrNotClockedIn     = errors.New("employee has no open entry")
)

// TimeEntry is the domain view of one attendance record.
type TimeEntry struct {
	ID         uuid.UUID
	EmployeeID uuid.UUID
	SiteID     *uuid.UUID
	Note       *string
	ClockInAt  time.Time
	ClockOutAt *time.Time
	CreatedAt  time.Time
}

// ClockInInput is the payload to open an entry.
type ClockInInput struct {
	EmployeeID uuid.UUID
	SiteID     *uuid.UUID
	Note       *string
}

// ClockOutInput is the payload to close the open entry.
type ClockOutInput struct {
	EmployeeID uuid.UUID
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	EmployeeID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ListResult wraps a page of entries.
type ListResult struct {
	Entries  []TimeEntry
	Page     int
	PageSize int
}

// Service defines the attendance operations.
type Service interface {
	ClockIn(ctx context.Context, input ClockInInput) (TimeEntry, error)
	ClockOut(ctx context.Context, input ClockOutInput) (TimeEntry, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
}

type service struct {
	repo  repo.Repository
	clock clock.Clock
}

// New constructs an attendance Service backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("attendance repository is required")
	}
	return &service{repo: r, clock: clock.New()}
}

// NewWithClock is New with an injectable clock for tests.
func NewWithClock(r repo.Repository, c clock.Clock) Service {
	if c == nil {
		panic("clock is required")
	}
	svc := New(r).(*service)
	svc.clock = c
	return svc
}

func (s *service) ClockIn(ctx context.Context, input ClockInInput) (TimeEntry, error) {
	fields := FieldErrors{}
	if input.EmployeeID == uuid.Nil {
		fields["employeeId"] = append(fields["employeeId"], "is required")
	}
	if input.Note != nil && len(*input.Note) > 500 {
		fields["note"] = append(fields["note"], "must be at most 500 characters")
	}
	if len(fields) > 0 {
		return TimeEntry{}, &ValidationError{Fields: fields}
	}

	_, err := s.repo.FindOpen(ctx, input.EmployeeID)
	switch {
	case err == nil:
		return TimeEntry{}, ErrAlreadyClockedIn
	case errors.Is(err, repo.ErrNotFound):
		// No open entry; proceed.
	default:
		return TimeEntry{}, fmt.Errorf("check open entry: %w", err)
	}

	created, err := s.repo.Create(ctx, repo.CreateParams{
		EmployeeID: input.EmployeeID,
		SiteID:     input.SiteID,
		Note:       input.Note,
		ClockInAt:  s.clock.Now().UTC(),
	})
	if err != nil {
		return TimeEntry{}, err
	}
	return fromRepo(created), nil
}

func (s *service) ClockOut(ctx context.Context, input ClockOutInput) (TimeEntry, error) {
	if input.EmployeeID == uuid.Nil {
		return TimeEntry{}, &ValidationError{Fields: FieldErrors{"employeeId": {"is required"}}}
	}

	open, err := s.repo.FindOpen(ctx, input.EmployeeID)
	if errors.Is(err, repo.ErrNotFound) {
		return TimeEntry{}, ErrNotClockedIn
	}
	if err != nil {
		return TimeEntry{}, fmt.Errorf("find open entry: %w", err)
	}

	closed, err := s.repo.CloseEntry(ctx, open.ID, s.clock.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		// The entry was closed between lookup and update.
		return TimeEntry{}, ErrNotClockedIn
	}
	if err != nil {
		return TimeEntry{}, err
	}
	return fromRepo(closed), nil
}

func (s *service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	if opts.From != nil && opts.To != nil && opts.To.Before(*opts.From) {
		return ListResult{}, &ValidationError{Fields: FieldErrors{"to": {"must not precede from"}}}
	}

	entries, err := s.repo.List(ctx, repo.ListParams{
		EmployeeID: opts.EmployeeID,
		From:       opts.From,
		To:         opts.To,
		Limit:      uint64(pageSize),
		Offset:     uint64((page - 1) * pageSize),
	})
	if err != nil {
		return ListResult{}, err
	}

	result := ListResult{Page: page, PageSize: pageSize, Entries: make([]TimeEntry, 0, len(entries))}
	for _, entry := range entries {
		result.Entries = append(result.Entries, fromRepo(entry))
	}
	return result, nil
}

func fromRepo(e repo.TimeEntry) TimeEntry {
	return TimeEntry{
		ID:         e.ID,
		EmployeeID: e.EmployeeID,
		SiteID:     e.SiteID,
		Note:       e.Note,
		ClockInAt:  e.ClockInAt,
		ClockOutAt: e.ClockOutAt,
		CreatedAt:  e.CreatedAt,
	}
}
