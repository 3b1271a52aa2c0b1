package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/toke-hq/toke-backend/platform/go/directory"
	platformlogging "github.com/toke-hq/toke-backend/platform/go/logging"
	"github.com/toke-hq/toke-backend/platform/go/signing"
	"github.com/toke-hq/toke-backend/platform/go/tenant"
)

// Proxy forwards requests to the tenant API selected by the reference
// header. The directory turns the reference into a subdomain, and every
// outbound request is re-signed with the aggregator's own identity.
type Proxy struct {
	directory directory.Directory
	client    *signing.Client
	scheme    string
	domain    string
	logger    *zap.Logger
}

// ProxyConfig wires the proxy dependencies.
type ProxyConfig struct {
	Directory directory.Directory
	Client    *signing.Client
	// Scheme for tenant API URLs, http or https.
	Scheme string
	// Domain is the base under which tenant subdomains live.
	Domain string
	Logger *zap.Logger
}

// NewProxy constructs a Proxy.
func NewProxy(cfg ProxyConfig) *Proxy {
	if cfg.Directory == nil {
		panic("proxy: directory is required")
	}
	if cfg.Client == nil {
		panic("proxy: signing client is required")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Domain == "" {
		panic("proxy: base domain is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Proxy{
		directory: cfg.Directory,
		client:    cfg.Client,
		scheme:    cfg.Scheme,
		domain:    cfg.Domain,
		logger:    cfg.Logger,
	}
}

// Forward relays the incoming request to the tenant API and copies the
// response back verbatim. The inbound signature headers are not forwarded;
// the signing client attaches fresh ones.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request) {
	logger := platformlogging.FromRequest(r, p.logger)

	reference, err := tenant.RequireReference(r.Context())
	if err != nil {
		writeProxyError(w, http.StatusBadRequest, "missing tenant reference")
		return
	}

	subdomain, err := p.directory.SubdomainForReference(r.Context(), reference)
	if errors.Is(err, directory.ErrUnknownReference) {
		writeProxyError(w, http.StatusNotFound, "unknown tenant reference")
		return
	}
	if err != nil {
		logger.Error("directory lookup failed", zap.Error(err))
		writeProxyError(w, http.StatusBadGateway, "tenant lookup failed")
		return
	}

	target := url.URL{
		Scheme:   p.scheme,
		Host:     subdomain + "." + p.domain,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}

	// Buffer the body so the signing client can rewind it between retries.
	var body io.Reader
	if r.Body != nil {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			writeProxyError(w, http.StatusBadRequest, "read request body")
			return
		}
		body = bytes.NewReader(payload)
	}

	outbound, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), body)
	if err != nil {
		logger.Error("build upstream request", zap.Error(err))
		writeProxyError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		outbound.Header.Set("Content-Type", ct)
	}

	resp, err := p.client.Do(outbound)
	if err != nil {
		logger.Error("upstream request failed",
			zap.String("tenant", subdomain),
			zap.Error(err))
		writeProxyError(w, http.StatusBadGateway, "tenant api unreachable")
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Warn("copy upstream response", zap.Error(err))
	}
}

func writeProxyError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
