// Package kv provides the small key-value surface the pipeline needs:
// monitoring status under a fixed key and short-lived caches like the SOL
// price. Values are opaque strings; callers serialize JSON themselves.
package kv

import (
	"context"
	"time"
)

// Store is a minimal key-value store with per-key TTL.
type Store interface {
	// Get retrieves a value. The second return is false when the key is
	// absent or expired.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a value. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}
