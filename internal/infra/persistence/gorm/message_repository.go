package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// GormMessageRepository is the GORM implementation of MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrMessageNotFound
		}
		return nil, fmt.Errorf("gorm: find message by id %s: %w", id, err)
	}
	return &msg, nil
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create message in room %s: %w", msg.RoomID, err)
	}
	return nil
}

func (r *GormMessageRepository) UpdateContent(ctx context.Context, id, content string) (*domain.Message, error) {
	res := r.db.WithContext(ctx).Model(&domain.Message{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return nil, fmt.Errorf("gorm: update content of message %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrMessageNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *GormMessageRepository) ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).
		Preload("Statuses").
		Where("room_id = ?", roomID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list messages of room %s: %w", roomID, err)
	}
	return msgs, nil
}

func (r *GormMessageRepository) PendingIDs(ctx context.Context, roomID, userID string, kind domain.StatusKind) ([]string, error) {
	column := "delivered_at"
	if kind == domain.StatusRead {
		column = "read_at"
	}

	db := r.db.WithContext(ctx)
	positive := db.Model(&domain.DeliveryStatus{}).
		Select("1").
		Where("delivery_statuses.message_id = messages.id").
		Where("delivery_statuses.user_id = ?", userID).
		Where("delivery_statuses." + column + " IS NOT NULL")

	var ids []string
	err := db.Model(&domain.Message{}).
		Where("messages.room_id = ? AND messages.sender_id <> ?", roomID, userID).
		Where("NOT EXISTS (?)", positive).
		Order("messages.created_at ASC").
		Pluck("messages.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: pending %s ids in room %s for user %s: %w", kind, roomID, userID, err)
	}
	return ids, nil
}
