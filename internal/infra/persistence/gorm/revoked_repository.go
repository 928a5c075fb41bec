package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// GormRevokedTokenRepository is the GORM implementation of RevokedTokenRepository.
type GormRevokedTokenRepository struct {
	db *gorm.DB
}

func NewGormRevokedTokenRepository(db *gorm.DB) *GormRevokedTokenRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRevokedTokenRepository")
	}
	return &GormRevokedTokenRepository{db: db}
}

func (r *GormRevokedTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*domain.RevokedToken, error) {
	var token domain.RevokedToken
	err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: lookup revoked token: %w", err)
	}
	return &token, nil
}

func (r *GormRevokedTokenRepository) Create(ctx context.Context, token *domain.RevokedToken) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "token_hash"}}, DoNothing: true}).
		Create(token).Error
	if err != nil {
		return fmt.Errorf("gorm: create revoked token: %w", err)
	}
	return nil
}

func (r *GormRevokedTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&domain.RevokedToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: delete expired revoked tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
