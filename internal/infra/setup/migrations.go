package setup

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mateoabrbt/whistle-server/internal/domain"
)

// Models lists every persisted record in dependency order.
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Room{},
		&domain.RoomMember{},
		&domain.Message{},
		&domain.DeliveryStatus{},
		&domain.RevokedToken{},
	}
}

// MigrateDB creates or updates all tables from the domain models.
func MigrateDB(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("cannot migrate database with nil DB connection")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		logrus.Errorf("Failed to auto-migrate tables: %v", err)
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	logrus.Info("Database migration completed successfully")
	return nil
}
