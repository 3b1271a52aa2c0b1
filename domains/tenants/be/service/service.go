package service

import (
	"context"
	"errors"
	"strings"

	"github.com/toke-hq/toke-backend/domains/tenants/be/repo"
	"github.com/toke-hq/toke-backend/platform/go/directory"
	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrNotFound          = errors.New("tenant not found")
	ErrConflictReference = errors.New("tenant reference already registered")
	ErrConflictSubdomain = errors.New("tenant subdomain already registered")
)

// ValidationError reports invalid registration input per field.
type ValidationError struct {
	Fields FieldErrors
}

// FieldErrors maps a field name to its validation messages.
type FieldErrors map[string][]string

func (e *ValidationError) Error() string {
	return "validation error"
}

// RegisterInput represents the request to add a tenant to the directory.
type RegisterInput struct {
	Reference   string
	Subdomain   string
	DisplayName string
}

// ListOptions captures filters and pagination.
type ListOptions struct {
	ActiveOnly bool
	Page       int
	PageSize   int
}

// ListResult wraps a page of directory entries.
type ListResult struct {
	Tenants  []directory.Tenant
	Page     int
	PageSize int
}

// Service provides tenant directory administration.
type Service struct {
	repo repo.Repository
}

// New constructs a Service with required dependencies.
func New(r repo.Repository) *Service {
	if r == nil {
		panic("tenants repo is required")
	}
	return &Service{repo: r}
}

// Register adds a tenant to the directory. The subdomain must be a valid
// tenant key because it doubles as the credential lookup key on the
// tenant API side.
func (s *Service) Register(ctx context.Context, input RegisterInput) (directory.Tenant, error) {
	fields := FieldErrors{}

	reference := strings.TrimSpace(input.Reference)
	if reference == "" {
		fields["reference"] = append(fields["reference"], "is required")
	}

	key, err := tenant.Normalize(input.Subdomain)
	if err != nil {
		fields["subdomain"] = append(fields["subdomain"], "must be lowercase letters, digits and dashes")
	} else if string(key) == "www" {
		fields["subdomain"] = append(fields["subdomain"], "is reserved")
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		fields["displayName"] = append(fields["displayName"], "is required")
	}

	if len(fields) > 0 {
		return directory.Tenant{}, &ValidationError{Fields: fields}
	}

	out, err := s.repo.Create(ctx, directory.Tenant{
		Reference:   reference,
		Subdomain:   string(key),
		DisplayName: displayName,
	})
	if err != nil {
		return directory.Tenant{}, mapRepoError(err)
	}
	return out, nil
}

// Get returns a directory entry by reference.
func (s *Service) Get(ctx context.Context, reference string) (directory.Tenant, error) {
	out, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		return directory.Tenant{}, mapRepoError(err)
	}
	return out, nil
}

// List returns directory entries, newest first.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}

	tenants, err := s.repo.List(ctx, repo.ListOptions{
		ActiveOnly: opts.ActiveOnly,
		Limit:      size,
		Offset:     (page - 1) * size,
	})
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Tenants: tenants, Page: page, PageSize: size}, nil
}

// Deactivate marks a tenant inactive. Inactive tenants disappear from
// directory lookups but keep their row for audit purposes.
func (s *Service) Deactivate(ctx context.Context, reference string) (directory.Tenant, error) {
	out, err := s.repo.SetActive(ctx, reference, false)
	if err != nil {
		return directory.Tenant{}, mapRepoError(err)
	}
	return out, nil
}

// Reactivate marks a tenant active again.
func (s *Service) Reactivate(ctx context.Context, reference string) (directory.Tenant, error) {
	out, err := s.repo.SetActive(ctx, reference, true)
	if err != nil {
		return directory.Tenant{}, mapRepoError(err)
	}
	return out, nil
}

func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrConflictReference):
		return ErrConflictReference
	case errors.Is(err, repo.ErrConflictSubdomain):
		return ErrConflictSubdomain
	default:
		return err
	}
}
