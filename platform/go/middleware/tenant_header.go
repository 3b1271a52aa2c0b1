package middleware

import (
	"net/http"
	"strings"

	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

// Header names carrying a tenant reference on aggregator-bound requests.
// x-api-client is the canonical one; x-api-reference is the legacy alias
// older integrations still send.
const (
	HeaderAPIClient    = "x-api-client"
	HeaderAPIReference = "x-api-reference"
)

// TenantFromHeader stores the tenant reference from the request headers on
// the context. No database connection is resolved here: the aggregator
// only needs the reference to look up the tenant's subdomain and forward a
// signed call; the tenant's own API resolves the connection on its side.
func TenantFromHeader() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ref := strings.TrimSpace(r.Header.Get(HeaderAPIClient))
			if ref == "" {
				ref = strings.TrimSpace(r.Header.Get(HeaderAPIReference))
			}
			if ref == "" {
				http.Error(w, "missing tenant reference", http.StatusBadRequest)
				return
			}

			ctx := tenant.WithReference(r.Context(), ref)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
