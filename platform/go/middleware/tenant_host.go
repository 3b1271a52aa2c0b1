// Package middleware carries the HTTP boundary pieces shared by the Toke
// API processes: the two tenant-resolution variants and CORS.
package middleware

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/toke-hq/toke-backend/platform/go/logging"
	"github.com/toke-hq/toke-backend/platform/go/tenant"
	"github.com/toke-hq/toke-backend/platform/go/tenantconn"
)

// reservedSubdomain is the public website, never a tenant.
const reservedSubdomain = "www"

// TenantFromHost resolves the tenant from the first label of the request
// hostname (acme.toke.app -> acme) and eagerly establishes its database
// connection, so a dead tenant database fails the request here instead of
// deep inside a handler. A request never proceeds with a partially
// resolved tenant: any failure terminates it.
func TenantFromHost(registry *tenantconn.Registry) func(http.Handler) http.Handler {
	if registry == nil {
		panic("tenant middleware: registry is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub, ok := subdomain(r.Host)
			if !ok || sub == reservedSubdomain {
				http.Error(w, "unknown tenant host", http.StatusBadRequest)
				return
			}

			key, err := tenant.Normalize(sub)
			if err != nil {
				http.Error(w, "unknown tenant host", http.StatusBadRequest)
				return
			}

			ctx := tenant.WithKey(r.Context(), key)

			if _, err := registry.GetForTenant(ctx, key); err != nil {
				logger := logging.FromRequest(r, zap.NewNop())
				logger.Error("tenant connection failed",
					zap.String("tenant", key.String()),
					zap.Error(err),
				)

				var connectErr *tenantconn.ConnectError
				if errors.As(err, &connectErr) {
					// Generic body on purpose; credential and driver detail
					// stays in the logs.
					http.Error(w, "cannot connect to tenant database", http.StatusBadGateway)
					return
				}
				http.Error(w, "tenant resolution failed", http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// subdomain extracts the first hostname label. ok is false when the host
// has no subdomain to speak of (bare domain, IP literal, empty).
func subdomain(host string) (string, bool) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}

	labels := strings.Split(host, ".")
	if len(labels) < 3 || labels[0] == "" {
		return "", false
	}
	return labels[0], true
}
