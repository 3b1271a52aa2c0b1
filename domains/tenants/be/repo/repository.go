package repo

import (
	"context"
	"errors"

	"github.com/toke-hq/toke-backend/platform/go/directory"
)

// Errors surfaced by the repository layer.
var (
	ErrNotFound          = errors.New("tenant not found")
	ErrConflictReference = errors.New("tenant reference already exists")
	ErrConflictSubdomain = errors.New("tenant subdomain already exists")
)

// ListOptions captures filters and pagination for directory listings.
type ListOptions struct {
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository abstracts persistence for the tenant directory.
type Repository interface {
	Create(ctx context.Context, t directory.Tenant) (directory.Tenant, error)
	FindByReference(ctx context.Context, reference string) (directory.Tenant, error)
	List(ctx context.Context, opts ListOptions) ([]directory.Tenant, error)
	SetActive(ctx context.Context, reference string, active bool) (directory.Tenant, error)
}
