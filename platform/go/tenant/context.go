package tenant

import (
	"context"
	"errors"
)

type ctxKey string

const (
	keyCtxKey       ctxKey = "TOKE_TENANT_KEY"
	referenceCtxKey ctxKey = "TOKE_TENANT_REFERENCE"
)

// ErrNoTenant is returned when tenant-scoped code runs before any middleware
// established which tenant the request acts on. Proceeding with a default
// tenant would risk cross-tenant data access, so this is always fatal to the
// current operation.
var ErrNoTenant = errors.New("tenant: no tenant in context")

// WithKey returns a derived context carrying the resolved tenant key.
// Middleware attaches it once per request; it is never stored globally.
func WithKey(ctx context.Context, key Key) context.Context {
	return context.WithValue(ctx, keyCtxKey, key)
}

// KeyFromContext extracts the tenant key and a boolean indicating presence.
func KeyFromContext(ctx context.Context) (Key, bool) {
	v := ctx.Value(keyCtxKey)
	if v == nil {
		return "", false
	}
	key, ok := v.(Key)
	return key, ok
}

// RequireKey extracts the tenant key or fails with ErrNoTenant.
func RequireKey(ctx context.Context) (Key, error) {
	key, ok := KeyFromContext(ctx)
	if !ok || key == "" {
		return "", ErrNoTenant
	}
	return key, nil
}

// WithReference returns a derived context carrying a tenant reference string.
// The aggregator flow stores the raw reference here; reference to subdomain
// resolution happens later through the directory.
func WithReference(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, referenceCtxKey, ref)
}

// ReferenceFromContext extracts the tenant reference and a presence flag.
func ReferenceFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(referenceCtxKey)
	if v == nil {
		return "", false
	}
	ref, ok := v.(string)
	return ref, ok
}

// RequireReference extracts the tenant reference or fails with ErrNoTenant.
func RequireReference(ctx context.Context) (string, error) {
	ref, ok := ReferenceFromContext(ctx)
	if !ok || ref == "" {
		return "", ErrNoTenant
	}
	return ref, nil
}
