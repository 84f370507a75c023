// Package cache provides the short-lived search result cache shared by the
// marketplace searcher. Values are stored as JSON so every backend behaves
// the same.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Store is a TTL key/value store.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Sweeper is implemented by stores that need expired entries removed
// periodically.
type Sweeper interface {
	Clean() error
}

// Backend names accepted by New.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config selects and configures a Store.
type Config struct {
	Backend    string
	MaxEntries int
	DefaultTTL time.Duration
	Redis      []RedisOption
}

// New builds the configured Store. BackendNone yields a nil Store.
func New(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case BackendRedis:
		s, err := NewRedisStore(cfg.Redis...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendMemory, "":
		maxEntries := cfg.MaxEntries
		if maxEntries <= 0 {
			maxEntries = 1000
		}
		return NewMemoryCache(maxEntries, cfg.DefaultTTL), nil
	default:
		return nil, errors.New("cache: unknown backend " + cfg.Backend)
	}
}
