package repository

import (
	"context"
	"time"
)

// RevocationCache is the fast-path lookup of revoked token hashes,
// usually backed by Redis. A miss is not authoritative.
type RevocationCache interface {
	// IsRevoked reports whether tokenHash is cached as revoked.
	IsRevoked(ctx context.Context, tokenHash string) (bool, error)

	// MarkRevoked caches tokenHash until ttl elapses. ttl <= 0 is a no-op.
	MarkRevoked(ctx context.Context, tokenHash string, ttl time.Duration) error
}

// RateLimiter counts hits per key inside a fixed window.
type RateLimiter interface {
	// Allow increments the counter for key and reports whether it is still
	// within limit for the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
