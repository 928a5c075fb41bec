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

// GormStatusRepository is the GORM implementation of StatusRepository.
type GormStatusRepository struct {
	db *gorm.DB
}

func NewGormStatusRepository(db *gorm.DB) *GormStatusRepository {
	if db == nil {
		panic("database connection cannot be nil for GormStatusRepository")
	}
	return &GormStatusRepository{db: db}
}

// FindByKey takes a row lock (SELECT ... FOR UPDATE on MySQL; the SQLite
// dialect drops the clause and relies on its database-level write lock).
func (r *GormStatusRepository) FindByKey(ctx context.Context, userID, messageID string) (*domain.DeliveryStatus, error) {
	var status domain.DeliveryStatus
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND message_id = ?", userID, messageID).
		First(&status).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStatusNotFound
		}
		return nil, fmt.Errorf("gorm: find status of user %s for message %s: %w", userID, messageID, err)
	}
	return &status, nil
}

func (r *GormStatusRepository) Create(ctx context.Context, status *domain.DeliveryStatus) error {
	if err := r.db.WithContext(ctx).Create(status).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create status of user %s for message %s: %w", status.UserID, status.MessageID, err)
	}
	return nil
}

func (r *GormStatusRepository) Save(ctx context.Context, status *domain.DeliveryStatus) error {
	if err := r.db.WithContext(ctx).Save(status).Error; err != nil {
		return fmt.Errorf("gorm: save status %s: %w", status.ID, err)
	}
	return nil
}

func (r *GormStatusRepository) MarkDeliveredWhereNull(ctx context.Context, userID string, messageIDs []string, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&domain.DeliveryStatus{}).
		Where("user_id = ? AND message_id IN ? AND delivered_at IS NULL", userID, messageIDs).
		Updates(map[string]interface{}{"delivered_at": at, "updated_at": at})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: mark delivered for user %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormStatusRepository) MarkReadWhereNull(ctx context.Context, userID string, messageIDs []string, at time.Time) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&domain.DeliveryStatus{}).
		Where("user_id = ? AND message_id IN ? AND read_at IS NULL", userID, messageIDs).
		Updates(map[string]interface{}{
			"read_at":      at,
			"delivered_at": gorm.Expr("COALESCE(delivered_at, ?)", at),
			"updated_at":   at,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: mark read for user %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormStatusRepository) CreateSkipDuplicates(ctx context.Context, statuses []domain.DeliveryStatus) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&statuses)
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: bulk create statuses (size %d): %w", len(statuses), res.Error)
	}
	return res.RowsAffected, nil
}

func (r *GormStatusRepository) ListByMessages(ctx context.Context, userID string, messageIDs []string) ([]domain.DeliveryStatus, error) {
	var statuses []domain.DeliveryStatus
	if len(messageIDs) == 0 {
		return statuses, nil
	}
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Find(&statuses).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list statuses of user %s: %w", userID, err)
	}
	return statuses, nil
}
