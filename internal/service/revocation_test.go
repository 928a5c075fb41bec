package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
	"github.com/mateoabrbt/whistle-server/internal/repository/mocks"
	"github.com/mateoabrbt/whistle-server/internal/service"
)

func TestHashToken(t *testing.T) {
	h := service.HashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, service.HashToken("abc"))
	assert.NotEqual(t, h, service.HashToken("abd"))
}

func TestRevocationService_IsRevoked_CacheHit(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	ctx := context.Background()

	cache.On("IsRevoked", ctx, service.HashToken("tok")).Return(true, nil).Once()

	revoked, err := svc.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
	repo.AssertNotCalled(t, "FindByHash", mock.Anything, mock.Anything)
}

func TestRevocationService_IsRevoked_DatabaseFallback(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service.SetRevocationClock(svc, func() time.Time { return now })
	ctx := context.Background()
	hash := service.HashToken("tok")

	cache.On("IsRevoked", ctx, hash).Return(false, errors.New("redis down")).Once()
	repo.On("FindByHash", mock.Anything, hash).Return(&domain.RevokedToken{TokenHash: hash, ExpiresAt: now.Add(time.Hour)}, nil).Once()
	cache.On("MarkRevoked", ctx, hash, time.Hour).Return(nil).Once()

	revoked, err := svc.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRevocationService_IsRevoked_NotRevoked(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	ctx := context.Background()
	hash := service.HashToken("tok")

	cache.On("IsRevoked", ctx, hash).Return(false, nil).Once()
	repo.On("FindByHash", mock.Anything, hash).Return(nil, repository.ErrNotFound).Once()

	revoked, err := svc.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
	cache.AssertNotCalled(t, "MarkRevoked", mock.Anything, mock.Anything, mock.Anything)
}

func TestRevocationService_IsRevoked_StorageError(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	ctx := context.Background()
	hash := service.HashToken("tok")

	cache.On("IsRevoked", ctx, hash).Return(false, nil).Once()
	repo.On("FindByHash", mock.Anything, hash).Return(nil, errors.New("db gone")).Once()

	_, err := svc.IsRevoked(ctx, "tok")
	assert.ErrorIs(t, err, service.ErrInternalServer)
}

func TestRevocationService_IsRevoked_CollapsesConcurrentMisses(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	ctx := context.Background()
	hash := service.HashToken("tok")

	const n = 8
	var arrived sync.WaitGroup
	arrived.Add(n)
	release := make(chan struct{})

	cache.On("IsRevoked", ctx, hash).Run(func(mock.Arguments) { arrived.Done() }).Return(false, nil).Times(n)
	repo.On("FindByHash", mock.Anything, hash).
		Run(func(mock.Arguments) { <-release }).
		Return(nil, repository.ErrNotFound).Once()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			revoked, err := svc.IsRevoked(ctx, "tok")
			assert.NoError(t, err)
			assert.False(t, revoked)
		}()
	}
	arrived.Wait()
	// Give the stragglers time to join the in-flight lookup.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
}

func TestRevocationService_IsRevoked_CancelledCallerDoesNotFailLookup(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hash := service.HashToken("tok")

	cache.On("IsRevoked", mock.Anything, hash).Return(false, nil).Once()
	repo.On("FindByHash", mock.MatchedBy(func(c context.Context) bool { return c.Err() == nil }), hash).
		Return(nil, repository.ErrNotFound).Once()

	revoked, err := svc.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevocationService_Revoke(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service.SetRevocationClock(svc, func() time.Time { return now })
	ctx := context.Background()
	hash := service.HashToken("tok")

	repo.On("Create", ctx, mock.MatchedBy(func(r *domain.RevokedToken) bool {
		return r.TokenHash == hash && r.ExpiresAt.Equal(now.Add(2*time.Hour)) && r.ID != ""
	})).Return(nil).Once()
	cache.On("MarkRevoked", ctx, hash, 2*time.Hour).Return(errors.New("redis down")).Once()

	assert.NoError(t, svc.Revoke(ctx, "tok", now.Add(2*time.Hour)), "cache failures are not fatal")
}

func TestRevocationService_SweepExpired(t *testing.T) {
	repo := mocks.NewRevokedTokenRepository(t)
	cache := mocks.NewRevocationCache(t)
	svc := service.NewRevocationService(repo, cache)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	service.SetRevocationClock(svc, func() time.Time { return now })
	ctx := context.Background()

	repo.On("DeleteExpired", ctx, now).Return(int64(4), nil).Once()
	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	repo.On("DeleteExpired", ctx, now).Return(int64(0), errors.New("boom")).Once()
	_, err = svc.SweepExpired(ctx)
	assert.ErrorIs(t, err, service.ErrInternalServer)
}
