package signing

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Client issues outbound HTTP calls carrying the signed-request headers.
// A fresh signature is computed per attempt, never reused, so retried
// attempts age correctly against the receiver's validity window.
type Client struct {
	http          *http.Client
	signer        *Signer
	apiKey        string
	maxTries      uint
	retryInterval time.Duration
}

// ClientConfig wires a Client.
type ClientConfig struct {
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// Signer signs every outbound request. Required.
	Signer *Signer
	// APIKey identifies this process to its peers. Required.
	APIKey string
	// MaxTries bounds attempts per call (default 3).
	MaxTries uint
	// RetryInterval is the initial backoff interval (default 500ms).
	RetryInterval time.Duration
}

// NewClient constructs a signing Client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Signer == nil {
		panic("signing client: signer is required")
	}
	if cfg.APIKey == "" {
		panic("signing client: api key is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 3
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	return &Client{
		http:          cfg.HTTPClient,
		signer:        cfg.Signer,
		apiKey:        cfg.APIKey,
		maxTries:      cfg.MaxTries,
		retryInterval: cfg.RetryInterval,
	}
}

// Do sends the request with signature headers attached, retrying transport
// errors and gateway-style statuses (502/503/504) with exponential backoff.
// Other HTTP statuses are the caller's business and returned as-is.
// Requests with a body must set GetBody (http.NewRequest does this for
// common body types) or retries are disabled for them.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		attempt, err := cloneRequest(req)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		signature, timestamp := c.signer.Sign(c.apiKey)
		attempt.Header.Set(HeaderAPIKey, c.apiKey)
		attempt.Header.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
		attempt.Header.Set(HeaderSignature, signature)

		resp, err := c.http.Do(attempt)
		if err != nil {
			return nil, err
		}

		switch resp.StatusCode {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			if req.Body != nil && req.GetBody == nil {
				return resp, nil
			}
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
		default:
			return resp, nil
		}
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryInterval

	return backoff.Retry(req.Context(), operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(c.maxTries),
	)
}

// cloneRequest produces a request safe to send for this attempt, rewinding
// the body through GetBody when present.
func cloneRequest(req *http.Request) (*http.Request, error) {
	attempt := req.Clone(req.Context())
	if req.Body == nil {
		return attempt, nil
	}
	if req.GetBody == nil {
		attempt.Body = req.Body
		return attempt, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	attempt.Body = body
	return attempt, nil
}
