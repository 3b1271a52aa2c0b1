package directory

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache is the subdomain cache in front of the authoritative store.
// Implementations return ErrCacheMiss when the key is absent.
type Cache interface {
	Get(ctx context.Context, reference string) (string, error)
	Set(ctx context.Context, reference, subdomain string, ttl time.Duration) error
}

// ErrCacheMiss signals an absent cache entry.
var ErrCacheMiss = errors.New("directory: cache miss")

// CachedDirectory layers a Cache over another Directory. Only positive
// results are cached; an unknown reference always hits the store so a
// freshly registered tenant resolves without waiting out a TTL. Cache
// failures degrade to a direct lookup.
type CachedDirectory struct {
	next   Directory
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// CachedConfig wires a CachedDirectory.
type CachedConfig struct {
	Next   Directory
	Cache  Cache
	TTL    time.Duration // defaults to 5m
	Logger *zap.Logger
}

// NewCachedDirectory constructs a CachedDirectory.
func NewCachedDirectory(cfg CachedConfig) *CachedDirectory {
	if cfg.Next == nil {
		panic("directory: next directory is required")
	}
	if cfg.Cache == nil {
		panic("directory: cache is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &CachedDirectory{next: cfg.Next, cache: cfg.Cache, ttl: cfg.TTL, logger: cfg.Logger}
}

// SubdomainForReference implements Directory.
func (d *CachedDirectory) SubdomainForReference(ctx context.Context, reference string) (string, error) {
	subdomain, err := d.cache.Get(ctx, reference)
	if err == nil {
		return subdomain, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		d.logger.Warn("directory cache read failed", zap.Error(err))
	}

	subdomain, err = d.next.SubdomainForReference(ctx, reference)
	if err != nil {
		return "", err
	}

	if err := d.cache.Set(ctx, reference, subdomain, d.ttl); err != nil {
		d.logger.Warn("directory cache write failed", zap.Error(err))
	}
	return subdomain, nil
}

const redisKeyPrefix = "toke:directory:"

// RedisCache implements Cache over go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a RedisCache.
func NewRedisCache(client *redis.Client) *RedisCache {
	if client == nil {
		panic("directory: redis client is required")
	}
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, reference string) (string, error) {
	v, err := c.client.Get(ctx, redisKeyPrefix+reference).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (c *RedisCache) Set(ctx context.Context, reference, subdomain string, ttl time.Duration) error {
	return c.client.Set(ctx, redisKeyPrefix+reference, subdomain, ttl).Err()
}
