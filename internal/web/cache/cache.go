// Package cache stores raw upstream response bodies between requests.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored value or ErrMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl. A zero ttl uses the backend default; a
	// negative ttl never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Clear removes every key under the cache prefix.
	Clear(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

// ErrMiss is returned by Get for keys that are absent or expired.
var ErrMiss = errors.New("cache miss")

// Backend names accepted by Open.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the settings shared by every backend.
type Config struct {
	// TTL applies to entries stored with a zero ttl.
	TTL time.Duration
	// Prefix namespaces keys.
	Prefix string
}

// DefaultConfig returns the default cache settings.
func DefaultConfig() Config {
	return Config{
		TTL:    time.Minute,
		Prefix: "mapper:",
	}
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	Config  Config
	Redis   RedisOptions
}

// Open creates the configured backend. BackendNone and the empty backend
// return a nil Cache.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemory(opts.Config), nil
	case BackendRedis:
		r, err := DialRedis(ctx, opts.Redis, opts.Config)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
