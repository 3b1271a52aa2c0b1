package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/toke-hq/toke-backend/domains/attendance/be/service"
	platformlogging "github.com/toke-hq/toke-backend/platform/go/logging"
)

// Handler wires the attendance service to HTTP.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("attendance service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the attendance endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/attendance/clock-in", h.clockIn)
	r.Post("/attendance/clock-out", h.clockOut)
	r.Get("/attendance/entries", h.list)
}

type clockInRequest struct {
	EmployeeID uuid.UUID  `json:"employeeId"`
	SiteID     *uuid.UUID `json:"siteId,omitempty"`
	Note       *string    `json:"note,omitempty"`
}

type clockOutRequest struct {
	EmployeeID uuid.UUID `json:"employeeId"`
}

type timeEntryResponse struct {
	ID         uuid.UUID  `json:"id"`
	EmployeeID uuid.UUID  `json:"employeeId"`
	SiteID     *uuid.UUID `json:"siteId,omitempty"`
	Note       *string    `json:"note,omitempty"`
	ClockInAt  time.Time  `json:"clockInAt"`
	ClockOutAt *time.Time `json:"clockOutAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type listResponse struct {
	Items    []timeEntryResponse `json:"items"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

func (h *Handler) clockIn(w http.ResponseWriter, r *http.Request) {
	var req clockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	entry, err := h.svc.ClockIn(r.Context(), service.ClockInInput{
		EmployeeID: req.EmployeeID,
		SiteID:     req.SiteID,
		Note:       req.Note,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(entry))
}

func (h *Handler) clockOut(w http.ResponseWriter, r *http.Request) {
	var req clockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	entry, err := h.svc.ClockOut(r.Context(), service.ClockOutInput{EmployeeID: req.EmployeeID})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(entry))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{}
	query := r.URL.Query()

	if v := query.Get("employeeId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid employeeId", nil)
			return
		}
		opts.EmployeeID = &id
	}
	if v := query.Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp", nil)
			return
		}
		opts.From = &ts
	}
	if v := query.Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to timestamp", nil)
			return
		}
		opts.To = &ts
	}
	if v := query.Get("page"); v != "" {
		opts.Page, _ = strconv.Atoi(v)
	}
	if v := query.Get("pageSize"); v != "" {
		opts.PageSize, _ = strconv.Atoi(v)
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := listResponse{
		Items:    make([]timeEntryResponse, 0, len(result.Entries)),
		Page:     result.Page,
		PageSize: result.PageSize,
	}
	for _, entry := range result.Entries {
		resp.Items = append(resp.Items, toResponse(entry))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation error", validationErr.Fields)
	case errors.Is(err, service.ErrAlreadyClockedIn):
		writeError(w, http.StatusConflict, "employee already clocked in", nil)
	case errors.Is(err, service.ErrNotClockedIn):
		writeError(w, http.StatusConflict, "employee is not clocked in", nil)
	default:
		logger := platformlogging.FromRequest(r, h.logger)
		logger.Error("attendance request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields service.FieldErrors `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string, fields service.FieldErrors) {
	writeJSON(w, status, errorResponse{Error: message, Fields: fields})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func toResponse(entry service.TimeEntry) timeEntryResponse {
	return timeEntryResponse{
		ID:         entry.ID,
		EmployeeID: entry.EmployeeID,
		SiteID:     entry.SiteID,
		Note:       entry.Note,
		ClockInAt:  entry.ClockInAt,
		ClockOutAt: entry.ClockOutAt,
		CreatedAt:  entry.CreatedAt,
	}
}
