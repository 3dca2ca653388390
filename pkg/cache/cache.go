// Package cache stores transform results keyed by content hashes.
//
// A transform is a pure function of the input program and the resolved
// project, so its output can be reused whenever both hash the same. Three
// backends are provided: [NullCache] disables caching, [FileCache] keeps
// entries under the user cache directory for CLI runs, and [RedisCache]
// shares them between server replicas.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional per-entry expiry.
// Implementations are safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is a miss,
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend.
	Close() error
}

// TTLTransform is how long transform results are kept.
const TTLTransform = 7 * 24 * time.Hour
