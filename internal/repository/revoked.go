package repository

import (
	"context"
	"time"

	"github.com/mateoabrbt/whistle-server/internal/domain"
)

// RevokedTokenRepository is the durable store of revoked token hashes.
type RevokedTokenRepository interface {
	// FindByHash returns ErrNotFound when the hash was never revoked.
	FindByHash(ctx context.Context, tokenHash string) (*domain.RevokedToken, error)

	// Create is idempotent: revoking the same token twice is not an error.
	Create(ctx context.Context, token *domain.RevokedToken) error

	// DeleteExpired removes rows whose ExpiresAt is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
