package ports

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store used for read-through identity caching.
// Errors are advisory: callers fall back to the repository.
type Cache interface {
	// Get reports found=false for a missing key rather than an error.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set with a non-positive ttl keeps the entry until it is deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
