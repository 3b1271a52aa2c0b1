package signing

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareAcceptsValidSignature(t *testing.T) {
	t.Parallel()

	mock := frozen(t)
	signer := newTestSigner(t, mock)
	verifier := NewVerifier(VerifierConfig{Clock: mock})

	handler := Middleware(verifier, StaticSecret(testSecret, "aggregator"), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	)

	signature, timestamp := signer.Sign("aggregator")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/entries", nil)
	req.Header.Set(HeaderAPIKey, "aggregator")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	req.Header.Set(HeaderSignature, signature)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddlewareRejections(t *testing.T) {
	t.Parallel()

	mock := frozen(t)
	signer := newTestSigner(t, mock)
	verifier := NewVerifier(VerifierConfig{Clock: mock})

	handler := Middleware(verifier, StaticSecret(testSecret, "aggregator"), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler must not run on rejected requests")
		}),
	)

	signature, timestamp := signer.Sign("aggregator")
	ts := strconv.FormatInt(timestamp, 10)

	cases := []struct {
		name    string
		headers map[string]string
	}{
		{name: "no headers", headers: map[string]string{}},
		{name: "missing signature", headers: map[string]string{
			HeaderAPIKey: "aggregator", HeaderTimestamp: ts,
		}},
		{name: "unknown api key", headers: map[string]string{
			HeaderAPIKey: "intruder", HeaderTimestamp: ts, HeaderSignature: signature,
		}},
		{name: "wrong signature", headers: map[string]string{
			HeaderAPIKey: "aggregator", HeaderTimestamp: ts, HeaderSignature: "AAAA",
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			// The body must not leak why verification failed.
			require.Equal(t, "unauthorized\n", rec.Body.String())
		})
	}
}
