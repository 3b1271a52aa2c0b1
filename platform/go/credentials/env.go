package credentials

import (
	"context"
	"os"

	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

const defaultPort = "5432"

// LookupFunc matches os.LookupEnv; injectable for tests.
type LookupFunc func(name string) (string, bool)

// EnvProvider resolves credentials by naming convention: for tenant key K
// and field F it reads TENANT_<K>_DB_<F>, falling back to the global DB_<F>.
// Per-tenant overrides ride on shared defaults, so a fleet on one database
// server needs only the global set plus a DB_NAME override per tenant.
type EnvProvider struct {
	lookup LookupFunc
}

// NewEnvProvider builds an EnvProvider reading the process environment.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// NewEnvProviderWithLookup builds an EnvProvider over a custom lookup.
func NewEnvProviderWithLookup(lookup LookupFunc) *EnvProvider {
	if lookup == nil {
		panic("credentials: lookup func is required")
	}
	return &EnvProvider{lookup: lookup}
}

// Resolve implements Provider. Every field must resolve to a non-empty
// value; the port alone defaults to 5432 when unset everywhere. No
// reachability check happens here: the registry pings the database before
// caching a connection built from this config.
func (p *EnvProvider) Resolve(_ context.Context, key tenant.Key) (Config, error) {
	cfg := Config{}

	fields := []struct {
		suffix string
		dst    *string
	}{
		{"HOST", &cfg.Host},
		{"PORT", &cfg.Port},
		{"USERNAME", &cfg.Username},
		{"PASSWORD", &cfg.Password},
		{"NAME", &cfg.Database},
	}

	seg := key.EnvSegment()
	for _, f := range fields {
		tenantVar := "TENANT_" + seg + "_DB_" + f.suffix
		globalVar := "DB_" + f.suffix

		if v, ok := p.lookup(tenantVar); ok && v != "" {
			*f.dst = v
			continue
		}
		if v, ok := p.lookup(globalVar); ok && v != "" {
			*f.dst = v
			continue
		}
		if f.suffix == "PORT" {
			*f.dst = defaultPort
			continue
		}
		return Config{}, &MissingError{Key: key, Variable: tenantVar, Fallback: globalVar}
	}

	return cfg, nil
}
