package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/toke-hq/toke-backend/platform/go/directory"
	"github.com/toke-hq/toke-backend/platform/go/signing"
	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

type fakeDirectory struct {
	subdomains map[string]string
}

func (d *fakeDirectory) SubdomainForReference(_ context.Context, reference string) (string, error) {
	sub, ok := d.subdomains[reference]
	if !ok {
		return "", directory.ErrUnknownReference
	}
	return sub, nil
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestProxy(t *testing.T, transport roundTripperFunc) *Proxy {
	t.Helper()

	signer, err := signing.NewSigner(testSecret)
	require.NoError(t, err)

	client := signing.NewClient(signing.ClientConfig{
		HTTPClient:    &http.Client{Transport: transport},
		Signer:        signer,
		APIKey:        "aggregator",
		RetryInterval: time.Millisecond,
	})

	return NewProxy(ProxyConfig{
		Directory: &fakeDirectory{subdomains: map[string]string{"client-42": "acme"}},
		Client:    client,
		Scheme:    "https",
		Domain:    "toke.example.com",
		Logger:    zap.NewNop(),
	})
}

func TestForwardRelaysToTenantHost(t *testing.T) {
	t.Parallel()

	var captured *http.Request
	var capturedBody []byte
	proxy := newTestProxy(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		var err error
		capturedBody, err = io.ReadAll(req.Body)
		require.NoError(t, err)
		return &http.Response{
			StatusCode: http.StatusCreated,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"id":"abc"}`)),
		}, nil
	})

	body := bytes.NewBufferString(`{"employeeId":"e1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attendance/clock-in?dry=1", body)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(tenant.WithReference(req.Context(), "client-42"))

	rec := httptest.NewRecorder()
	proxy.Forward(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"id":"abc"}`, rec.Body.String())

	require.NotNil(t, captured)
	require.Equal(t, "acme.toke.example.com", captured.URL.Host)
	require.Equal(t, "https", captured.URL.Scheme)
	require.Equal(t, "/api/v1/attendance/clock-in", captured.URL.Path)
	require.Equal(t, "dry=1", captured.URL.RawQuery)
	require.Equal(t, `{"employeeId":"e1"}`, string(capturedBody))

	// Outbound calls carry a fresh signature.
	verifier := signing.NewVerifier(signing.VerifierConfig{})
	require.True(t, verifier.Verify(
		captured.Header.Get(signing.HeaderSignature),
		captured.Header.Get(signing.HeaderAPIKey),
		captured.Header.Get(signing.HeaderTimestamp),
		testSecret,
	))
}

func TestForwardUnknownReference(t *testing.T) {
	t.Parallel()

	proxy := newTestProxy(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no upstream call expected")
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/entries", nil)
	req = req.WithContext(tenant.WithReference(req.Context(), "nobody"))

	rec := httptest.NewRecorder()
	proxy.Forward(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForwardMissingReference(t *testing.T) {
	t.Parallel()

	proxy := newTestProxy(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no upstream call expected")
		return nil, nil
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/entries", nil)
	rec := httptest.NewRecorder()
	proxy.Forward(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForwardUpstreamUnreachable(t *testing.T) {
	t.Parallel()

	proxy := newTestProxy(t, func(*http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/attendance/entries", nil)
	req = req.WithContext(tenant.WithReference(req.Context(), "client-42"))

	rec := httptest.NewRecorder()
	proxy.Forward(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}
