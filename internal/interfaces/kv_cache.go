package interfaces

import (
	"context"
	"time"
)

// KeyValueCache is a key/value store with per-entry TTL. The policy
// cache and CLI sinks use it; implementations include an in-memory map
// and a Badger-backed store.
type KeyValueCache interface {
	// Get returns the value for key and whether it was present and fresh
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key; a zero TTL means no expiry
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases the underlying store
	Close() error
}
