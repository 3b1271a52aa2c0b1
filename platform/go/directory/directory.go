// Package directory maps tenant reference strings to subdomains. The
// aggregator receives references in headers but talks to tenant APIs by
// hostname, so every outbound call starts with this lookup. The master
// database is authoritative; a Redis cache sits in front of it.
package directory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownReference is returned when no active tenant matches a reference.
var ErrUnknownReference = errors.New("directory: unknown tenant reference")

// Directory resolves a tenant reference to the tenant's subdomain.
type Directory interface {
	SubdomainForReference(ctx context.Context, reference string) (string, error)
}

// Tenant is one directory entry, as managed through the master API.
type Tenant struct {
	ID          uuid.UUID
	Reference   string
	Subdomain   string
	DisplayName string
	Active      bool
	CreatedAt   time.Time
}
