// Package credentials resolves database connection parameters for a tenant.
// The default provider follows a naming convention over environment
// variables (TENANT_<KEY>_DB_HOST with a DB_HOST fallback); alternative
// providers (secret managers, config services) only need to implement
// Provider for the connection registry to use them.
package credentials

import (
	"context"
	"fmt"
	"net/url"

	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

// Config holds the resolved connection parameters for one tenant database.
// It is recomputed on every new connection attempt and never cached on its
// own; only the connection built from it is cached.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN renders the config as a postgres connection URL. The password is
// URL-escaped so credentials with special characters survive.
func (c Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Database,
	}
	return u.String()
}

// Provider resolves connection parameters for a tenant key.
type Provider interface {
	Resolve(ctx context.Context, key tenant.Key) (Config, error)
}

// MissingError reports a credential field that resolved to nothing: neither
// the tenant-specific variable nor the global fallback was set.
type MissingError struct {
	Key      tenant.Key
	Variable string
	Fallback string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("credentials: tenant %q: neither %s nor %s is set", e.Key, e.Variable, e.Fallback)
}
