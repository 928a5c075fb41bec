package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// RevocationService tracks bearer tokens invalidated before their expiry.
// Lookups hit the cache first; concurrent misses for one token share a
// single database query.
type RevocationService struct {
	repo  repository.RevokedTokenRepository
	cache repository.RevocationCache
	group singleflight.Group
	now   func() time.Time
}

func NewRevocationService(repo repository.RevokedTokenRepository, cache repository.RevocationCache) *RevocationService {
	if repo == nil || cache == nil {
		panic("RevokedTokenRepository and RevocationCache cannot be nil for RevocationService")
	}
	return &RevocationService{repo: repo, cache: cache, now: time.Now}
}

// HashToken is the storage key of a raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *RevocationService) IsRevoked(ctx context.Context, token string) (bool, error) {
	hash := HashToken(token)
	logCtx := logrus.WithField("token_hash", hash[:12])

	cached, err := s.cache.IsRevoked(ctx, hash)
	if err != nil {
		logCtx.WithError(err).Warn("Revocation cache lookup failed, falling back to database")
	} else if cached {
		return true, nil
	}

	// The shared lookup outlives any one caller's cancellation.
	lookupCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(hash, func() (interface{}, error) {
		row, err := s.repo.FindByHash(lookupCtx, hash)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return row, err
	})
	if err != nil {
		return false, asServiceError(err, logCtx, "Revocation lookup failed")
	}
	row, _ := v.(*domain.RevokedToken)
	if row == nil {
		return false, nil
	}

	if err := s.cache.MarkRevoked(ctx, hash, row.ExpiresAt.Sub(s.now())); err != nil {
		logCtx.WithError(err).Warn("Failed to re-cache revoked token")
	}
	return true, nil
}

// Revoke invalidates token until expiresAt. Revoking twice is harmless.
func (s *RevocationService) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	hash := HashToken(token)
	logCtx := logrus.WithField("token_hash", hash[:12])

	row := &domain.RevokedToken{ID: uuid.NewString(), TokenHash: hash, ExpiresAt: expiresAt}
	if err := s.repo.Create(ctx, row); err != nil {
		return asServiceError(err, logCtx, "Failed to store revoked token")
	}
	if err := s.cache.MarkRevoked(ctx, hash, expiresAt.Sub(s.now())); err != nil {
		logCtx.WithError(err).Warn("Failed to cache revoked token")
	}
	logCtx.Info("Token revoked")
	return nil
}

// SweepExpired deletes revocations whose token would be rejected as expired anyway.
func (s *RevocationService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, asServiceError(err, logrus.WithField("task", "revoked_sweep"), "Failed to sweep revoked tokens")
	}
	logrus.WithField("deleted", n).Info("Expired revoked tokens swept")
	return n, nil
}
