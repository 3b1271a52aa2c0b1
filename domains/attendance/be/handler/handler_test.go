package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/toke-hq/toke-backend/domains/attendance/be/service"
)

type mockService struct {
	clockInFunc  func(ctx context.Context, input service.ClockInInput) (service.TimeEntry, error)
	clockOutFunc func(ctx context.Context, input service.ClockOutInput) (service.TimeEntry, error)
	listFunc     func(ctx context.Context, opts service.ListOptions) (service.ListResult, error)
}

func (m *mockService) ClockIn(ctx context.Context, input service.ClockInInput) (service.TimeEntry, error) {
	if m.clockInFunc == nil {
		panic("unexpected call to ClockIn")
	}
	return m.clockInFunc(ctx, input)
}

func (m *mockService) ClockOut(ctx context.Context, input service.ClockOutInput) (service.TimeEntry, error) {
	if m.clockOutFunc == nil {
		panic("unexpected call to ClockOut")
	}
	return m.clockOutFunc(ctx, input)
}

func (m *mockService) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	if m.listFunc == nil {
		panic("unexpected call to List")
	}
	return m.listFunc(ctx, opts)
}

func newTestRouter(t *testing.T, svc service.Service) http.Handler {
	t.Helper()
	r := chi.NewRouter()
	New(svc, zap.NewNop()).Routes(r)
	return r
}

func TestClockInCreated(t *testing.T) {
	t.Parallel()

	employeeID := uuid.New()
	entryID := uuid.New()
	clockedIn := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	svc := &mockService{
		clockInFunc: func(_ context.Context, input service.ClockInInput) (service.TimeEntry, error) {
			require.Equal(t, employeeID, input.EmployeeID)
			require.NotNil(t, input.Note)
			require.Equal(t, "front gate", *input.Note)
			return service.TimeEntry{
				ID:         entryID,
				EmployeeID: input.EmployeeID,
				Note:       input.Note,
				ClockInAt:  clockedIn,
				CreatedAt:  clockedIn,
			}, nil
		},
	}

	body := bytes.NewBufferString(`{"employeeId":"` + employeeID.String() + `","note":"front gate"}`)
	req := httptest.NewRequest(http.MethodPost, "/attendance/clock-in", body)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp timeEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, entryID, resp.ID)
	require.Equal(t, employeeID, resp.EmployeeID)
	require.Nil(t, resp.ClockOutAt)
}

func TestClockInInvalidBody(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/attendance/clock-in", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	newTestRouter(t, &mockService{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClockInValidationError(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		clockInFunc: func(context.Context, service.ClockInInput) (service.TimeEntry, error) {
			return service.TimeEntry{}, &service.ValidationError{
				Fields: service.FieldErrors{"employeeId": {"is required"}},
			}
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/attendance/clock-in", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "validation error", resp.Error)
	require.Contains(t, resp.Fields, "employeeId")
}

func TestClockInConflict(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		clockInFunc: func(context.Context, service.ClockInInput) (service.TimeEntry, error) {
			return service.TimeEntry{}, service.ErrAlreadyClockedIn
		},
	}

	body := bytes.NewBufferString(`{"employeeId":"` + uuid.NewString() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/attendance/clock-in", body)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestClockOutClosesEntry(t *testing.T) {
	t.Parallel()

	employeeID := uuid.New()
	closedAt := time.Date(2026, 3, 14, 17, 30, 0, 0, time.UTC)

	svc := &mockService{
		clockOutFunc: func(_ context.Context, input service.ClockOutInput) (service.TimeEntry, error) {
			require.Equal(t, employeeID, input.EmployeeID)
			return service.TimeEntry{
				ID:         uuid.New(),
				EmployeeID: employeeID,
				ClockInAt:  closedAt.Add(-8 * time.Hour),
				ClockOutAt: &closedAt,
			}, nil
		},
	}

	body := bytes.NewBufferString(`{"employeeId":"` + employeeID.String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/attendance/clock-out", body)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp timeEntryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.ClockOutAt)
	require.True(t, closedAt.Equal(*resp.ClockOutAt))
}

func TestClockOutNotClockedIn(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		clockOutFunc: func(context.Context, service.ClockOutInput) (service.TimeEntry, error) {
			return service.TimeEntry{}, service.ErrNotClockedIn
		},
	}

	body := bytes.NewBufferString(`{"employeeId":"` + uuid.NewString() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/attendance/clock-out", body)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestListPassesFilters(t *testing.T) {
	t.Parallel()

	employeeID := uuid.New()

	svc := &mockService{
		listFunc: func(_ context.Context, opts service.ListOptions) (service.ListResult, error) {
			require.NotNil(t, opts.EmployeeID)
			require.Equal(t, employeeID, *opts.EmployeeID)
			require.NotNil(t, opts.From)
			require.Equal(t, 2, opts.Page)
			require.Equal(t, 10, opts.PageSize)
			return service.ListResult{
				Entries:  []service.TimeEntry{{ID: uuid.New(), EmployeeID: employeeID}},
				Page:     2,
				PageSize: 10,
			}, nil
		},
	}

	url := "/attendance/entries?employeeId=" + employeeID.String() +
		"&from=2026-03-01T00:00:00Z&page=2&pageSize=10"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.Equal(t, 2, resp.Page)
	require.Equal(t, 10, resp.PageSize)
}

func TestListRejectsBadTimestamp(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/attendance/entries?from=yesterday", nil)
	rec := httptest.NewRecorder()
	newTestRouter(t, &mockService{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListInternalError(t *testing.T) {
	t.Parallel()

	svc := &mockService{
		listFunc: func(context.Context, service.ListOptions) (service.ListResult, error) {
			return service.ListResult{}, errors.New("boom")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/attendance/entries", nil)
	rec := httptest.NewRecorder()
	newTestRouter(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "internal error", resp.Error)
}
