package gormpersistence

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mateoabrbt/whistle-server/internal/repository"
)

// GormTransactor implements repository.Transactor with explicit
// Begin/Commit/Rollback so the scope is visible at the call site.
type GormTransactor struct {
	db *gorm.DB
}

func NewGormTransactor(db *gorm.DB) *GormTransactor {
	if db == nil {
		panic("database connection cannot be nil for GormTransactor")
	}
	return &GormTransactor{db: db}
}

// WithinTx begins a transaction, hands fn a Store bound to it and commits when
// fn returns nil. An error or a panic from fn rolls back; a panic is re-raised.
// Deadlock aborts come back wrapped in repository.ErrTxConflict.
func (t *GormTransactor) WithinTx(ctx context.Context, fn func(repository.Store) error) error {
	tx := t.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("gorm: begin transaction: %w", tx.Error)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&gormStore{tx: tx}); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			logrus.WithError(rbErr).Warn("gorm: rollback failed")
		}
		if isTxConflictError(err) {
			return fmt.Errorf("%w: %w", repository.ErrTxConflict, err)
		}
		return err
	}

	if err := tx.Commit().Error; err != nil {
		if isTxConflictError(err) {
			return fmt.Errorf("%w: commit: %w", repository.ErrTxConflict, err)
		}
		return fmt.Errorf("gorm: commit transaction: %w", err)
	}
	return nil
}

// gormStore hands out repositories sharing the same *gorm.DB transaction.
type gormStore struct {
	tx *gorm.DB
}

func (s *gormStore) Rooms() repository.RoomRepository       { return NewGormRoomRepository(s.tx) }
func (s *gormStore) Messages() repository.MessageRepository { return NewGormMessageRepository(s.tx) }
func (s *gormStore) Statuses() repository.StatusRepository  { return NewGormStatusRepository(s.tx) }
