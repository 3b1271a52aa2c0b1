package signing

import (
	"net/http"

	"github.com/toke-hq/toke-backend/platform/go/metrics"
)

// SecretLookup maps an API key to its base64 shared secret. Returning
// ok=false rejects the call without touching the verifier.
type SecretLookup func(apiKey string) (secret string, ok bool)

// StaticSecret is a SecretLookup handing every known API key the same
// shared secret, the deployment model used between the Toke processes.
func StaticSecret(secret string, apiKeys ...string) SecretLookup {
	known := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		known[k] = struct{}{}
	}
	return func(apiKey string) (string, bool) {
		if _, ok := known[apiKey]; !ok {
			return "", false
		}
		return secret, true
	}
}

// Middleware verifies the three signature headers on every request before
// passing it on. Rejections are a bare 401; the body never says why.
func Middleware(verifier *Verifier, lookup SecretLookup, m *metrics.SigningMetrics) func(http.Handler) http.Handler {
	if verifier == nil {
		panic("signing middleware: verifier is required")
	}
	if lookup == nil {
		panic("signing middleware: secret lookup is required")
	}

	count := func(outcome string) {
		if m != nil {
			m.Verifications.WithLabelValues(outcome).Inc()
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(HeaderAPIKey)
			timestamp := r.Header.Get(HeaderTimestamp)
			signature := r.Header.Get(HeaderSignature)
			if apiKey == "" || timestamp == "" || signature == "" {
				count("missing_headers")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			secret, ok := lookup(apiKey)
			if !ok {
				count("unknown_key")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if !verifier.Verify(signature, apiKey, timestamp, secret) {
				count("rejected")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			count("ok")
			next.ServeHTTP(w, r)
		})
	}
}
