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

	"github.com/toke-hq/toke-backend/domains/tenants/be/service"
	"github.com/toke-hq/toke-backend/platform/go/directory"
	platformlogging "github.com/toke-hq/toke-backend/platform/go/logging"
)

// Handler exposes tenant directory administration over HTTP.
type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes mounts the directory admin endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/tenants", h.register)
	r.Get("/tenants", h.list)
	r.Get("/tenants/{reference}", h.get)
	r.Post("/tenants/{reference}/deactivate", h.deactivate)
	r.Post("/tenants/{reference}/reactivate", h.reactivate)
}

type registerRequest struct {
	Reference   string `json:"reference"`
	Subdomain   string `json:"subdomain"`
	DisplayName string `json:"displayName"`
}

type tenantResponse struct {
	ID          uuid.UUID `json:"id"`
	Reference   string    `json:"reference"`
	Subdomain   string    `json:"subdomain"`
	DisplayName string    `json:"displayName"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

type listResponse struct {
	Items    []tenantResponse `json:"items"`
	Page     int              `json:"page"`
	PageSize int              `json:"pageSize"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	out, err := h.svc.Register(r.Context(), service.RegisterInput{
		Reference:   req.Reference,
		Subdomain:   req.Subdomain,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(out))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := service.ListOptions{ActiveOnly: query.Get("active") == "true"}
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
		Items:    make([]tenantResponse, 0, len(result.Tenants)),
		Page:     result.Page,
		PageSize: result.PageSize,
	}
	for _, t := range result.Tenants {
		resp.Items = append(resp.Items, toResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Get(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(out))
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Deactivate(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(out))
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Reactivate(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(out))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, "validation error", validationErr.Fields)
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "tenant not found", nil)
	case errors.Is(err, service.ErrConflictReference):
		writeError(w, http.StatusConflict, "reference already registered", nil)
	case errors.Is(err, service.ErrConflictSubdomain):
		writeError(w, http.StatusConflict, "subdomain already registered", nil)
	default:
		logger := platformlogging.FromRequest(r, h.logger)
		logger.Error("tenants request failed", zap.Error(err))
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

func toResponse(t directory.Tenant) tenantResponse {
	return tenantResponse{
		ID:          t.ID,
		Reference:   t.Reference,
		Subdomain:   t.Subdomain,
		DisplayName: t.DisplayName,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
	}
}
