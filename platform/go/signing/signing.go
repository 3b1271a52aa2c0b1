// Package signing implements the shared-secret scheme authenticating
// service-to-service calls between the Toke API processes. Each call
// carries an API key, a unix-seconds timestamp, and an HMAC-SHA256
// signature over apiKey+timestamp; the receiver recomputes the MAC with
// the shared secret and accepts the call while the timestamp is inside
// the validity window. There is no nonce store: replay protection is
// bounded by the window, a deliberate tradeoff for statelessness.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
)

// Header names of the signed-request scheme. Every service-to-service call
// carries all three.
const (
	HeaderAPIKey    = "x-api-key"
	HeaderTimestamp = "x-api-timestamp"
	HeaderSignature = "x-api-signature"
)

// DefaultValidityWindow is the maximum age a signature's timestamp may have
// and still verify.
const DefaultValidityWindow = 24 * time.Hour

// DecodeSecret decodes a base64 shared secret into raw key bytes.
func DecodeSecret(secret string) ([]byte, error) {
	if secret == "" {
		return nil, errors.New("signing: empty secret")
	}
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, errors.New("signing: secret is not valid base64")
	}
	return key, nil
}

// mac computes base64(HMAC-SHA256(key, apiKey+timestamp)). The message is
// plain concatenation with the decimal timestamp and no delimiter; both
// sides must agree on this exact layout.
func mac(key []byte, apiKey string, timestamp int64) string {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(apiKey + strconv.FormatInt(timestamp, 10)))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Signer produces signatures for outbound calls under one API key's secret.
type Signer struct {
	key   []byte
	clock clock.Clock
}

// NewSigner builds a Signer from a base64 shared secret.
func NewSigner(secret string) (*Signer, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key, clock: clock.New()}, nil
}

// Sign returns a fresh signature for apiKey at the current time, together
// with the timestamp that must be transmitted alongside it. The timestamp
// is not embedded in the signature output; verification needs it as a
// separate field.
func (s *Signer) Sign(apiKey string) (signature string, timestamp int64) {
	timestamp = s.clock.Now().Unix()
	return mac(s.key, apiKey, timestamp), timestamp
}

// Verifier checks inbound signatures against a validity window.
type Verifier struct {
	window time.Duration
	clock  clock.Clock
}

// VerifierConfig tunes a Verifier. Zero values take defaults.
type VerifierConfig struct {
	// ValidityWindow defaults to 24h.
	ValidityWindow time.Duration
	// Clock defaults to the wall clock; tests inject a mock.
	Clock clock.Clock
}

// NewVerifier builds a Verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.ValidityWindow <= 0 {
		cfg.ValidityWindow = DefaultValidityWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Verifier{window: cfg.ValidityWindow, clock: cfg.Clock}
}

// Verify reports whether signature is a valid MAC over apiKey and
// timestampStr under the base64 secret, and the timestamp is neither in
// the future nor older than the validity window.
//
// Every failure mode, including malformed timestamps, secrets, and
// signatures, collapses to false. Callers must not be able to distinguish
// "expired" from "wrong signature" from "garbage input": returning a
// reason would hand an oracle to an attacker probing the scheme.
func (v *Verifier) Verify(signature, apiKey, timestampStr, secret string) bool {
	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return false
	}

	now := v.clock.Now().Unix()
	if timestamp > now {
		// Pre-dated tokens are rejected outright; a future timestamp can
		// only come from clock skew or forgery.
		return false
	}
	if now-timestamp > int64(v.window/time.Second) {
		return false
	}

	// Cheap alphabet check before any crypto work.
	if !isBase64(signature) {
		return false
	}

	key, err := DecodeSecret(secret)
	if err != nil {
		return false
	}

	expected := mac(key, apiKey, timestamp)
	if len(signature) != len(expected) {
		return false
	}

	sigBytes, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	expectedBytes, err := base64.StdEncoding.DecodeString(expected)
	if err != nil {
		return false
	}

	return hmac.Equal(sigBytes, expectedBytes)
}

func isBase64(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '+' || r == '/' || r == '=':
		default:
			return false
		}
	}
	return true
}
