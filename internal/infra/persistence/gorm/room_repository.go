package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateoabrbt/whistle-server/internal/domain"
	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// GormRoomRepository is the GORM implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindForMember(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = rooms.id AND room_members.user_id = ?", userID).
		Preload("Members").
		Where("rooms.id = ?", roomID).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room %s for member %s: %w", roomID, userID, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) ListForMember(ctx context.Context, userID string) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Joins("JOIN room_members ON room_members.room_id = rooms.id AND room_members.user_id = ?", userID).
		Preload("Members").
		Order("rooms.updated_at DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list rooms for member %s: %w", userID, err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) ListIDsForMember(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("user_id = ?", userID).
		Order("room_id").
		Pluck("room_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list room ids for member %s: %w", userID, err)
	}
	return ids, nil
}

// Create inserts the room and its member rows. Callers wanting atomicity run
// it through a Transactor.
func (r *GormRoomRepository) Create(ctx context.Context, room *domain.Room, memberIDs []string) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(room).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create room %s: %w", room.Name, err)
	}
	if len(memberIDs) == 0 {
		return nil
	}

	members := make([]domain.RoomMember, 0, len(memberIDs))
	for _, id := range memberIDs {
		members = append(members, domain.RoomMember{RoomID: room.ID, UserID: id})
	}
	if err := db.Create(&members).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: create members of room %s: %w", room.ID, err)
	}
	room.Members = members
	return nil
}

func (r *GormRoomRepository) AddMember(ctx context.Context, roomID, userID string) error {
	err := r.db.WithContext(ctx).Create(&domain.RoomMember{RoomID: roomID, UserID: userID}).Error
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: add member %s to room %s: %w", userID, roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	res := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.RoomMember{})
	if res.Error != nil {
		return fmt.Errorf("gorm: remove member %s from room %s: %w", userID, roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *GormRoomRepository) CountMembers(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).Where("room_id = ?", roomID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count members of room %s: %w", roomID, err)
	}
	return count, nil
}

// Delete removes dependents explicitly, children first, so it does not rely on
// the dialect enforcing ON DELETE CASCADE.
func (r *GormRoomRepository) Delete(ctx context.Context, roomID string) error {
	db := r.db.WithContext(ctx)
	messageIDs := db.Model(&domain.Message{}).Select("id").Where("room_id = ?", roomID)

	steps := []struct {
		what string
		run  func() error
	}{
		{"statuses", func() error {
			return db.Where("message_id IN (?)", messageIDs).Delete(&domain.DeliveryStatus{}).Error
		}},
		{"messages", func() error { return db.Where("room_id = ?", roomID).Delete(&domain.Message{}).Error }},
		{"members", func() error { return db.Where("room_id = ?", roomID).Delete(&domain.RoomMember{}).Error }},
		{"room", func() error { return db.Where("id = ?", roomID).Delete(&domain.Room{}).Error }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("gorm: delete %s of room %s: %w", step.what, roomID, err)
		}
	}
	return nil
}
