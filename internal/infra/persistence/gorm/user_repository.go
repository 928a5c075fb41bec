package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// GormUserRepository is the GORM implementation of UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by username '%s': %w", username, err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: find user by id %s: %w", id, err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	var users []domain.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("gorm: find users by ids: %w", err)
	}
	return users, nil
}

// Save inserts a user that was never stored (zero CreatedAt) and updates
// it otherwise. Inserts never upsert, so a taken username cannot overwrite
// the existing row.
func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	db := r.db.WithContext(ctx)
	var err error
	if user.CreatedAt.IsZero() {
		err = db.Create(user).Error
	} else {
		err = db.Save(user).Error
	}
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save user (id: %s, username: %s): %w", user.ID, user.Username, err)
	}
	return nil
}

func (r *GormUserRepository) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Update("refresh_token_hash", hash).Error
	if err != nil {
		return fmt.Errorf("gorm: set refresh token of user %s: %w", userID, err)
	}
	return nil
}

// SwapRefreshTokenHash is a single conditional UPDATE, so two refreshes with
// the same token cannot both succeed.
func (r *GormUserRepository) SwapRefreshTokenHash(ctx context.Context, userID, oldHash, newHash string) (bool, error) {
	if oldHash == "" {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ? AND refresh_token_hash = ?", userID, oldHash).
		Update("refresh_token_hash", newHash)
	if res.Error != nil {
		return false, fmt.Errorf("gorm: swap refresh token of user %s: %w", userID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
