package tenant

import (
	"errors"
	"fmt"
	"strings"
)

// Key is the normalized identifier for a tenant. It keys the connection
// cache and drives credential lookup, so it is always stored lower-case.
type Key string

// ErrInvalidKey is returned when a raw identifier cannot be normalized.
var ErrInvalidKey = errors.New("tenant: invalid tenant key")

// Normalize lower-cases a raw identifier (subdomain label or reference) and
// validates the character set. Only letters, digits and dashes are accepted;
// a dash may not lead or trail.
func Normalize(raw string) (Key, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(s, "-") || strings.HasSuffix(s, "-") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
		}
	}
	return Key(s), nil
}

func (k Key) String() string { return string(k) }

// EnvSegment returns the form of the key used inside environment variable
// names (TENANT_<segment>_DB_HOST): upper-cased, dashes mapped to
// underscores since a dash is not legal in a variable name.
func (k Key) EnvSegment() string {
	return strings.ToUpper(strings.ReplaceAll(string(k), "-", "_"))
}
