package db

import (
	"fmt"

	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model in dependency order for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Agent{},
		&models.Conversation{},
		&models.Message{},
		&models.MessageRecipient{},
		&models.AgentMessageMetadata{},
		&models.TimedMessage{},
	}
}

// AutoMigrate creates or updates all Switchboard tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
