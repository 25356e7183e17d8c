// Package cache provides key/value caching for generated layouts and
// rendered artifacts.
//
// Backends implement [Cache]: [FileCache] for the CLI, [RedisCache] for the
// HTTP server, and [NullCache] when caching is disabled. Keys are produced by
// a [Keyer] so every component derives identical keys for identical inputs.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the stored value and whether it was found. A miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default TTLs per entry type.
const (
	// TTLLayout applies to generated layouts. A layout is fully determined
	// by its parameters and seed, so it can live long.
	TTLLayout = 7 * 24 * time.Hour

	// TTLArtifact applies to rendered PNG/JSON artifacts.
	TTLArtifact = 24 * time.Hour
)
