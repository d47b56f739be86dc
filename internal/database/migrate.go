package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/agenda-api/internal/models"
)

// Migrate creates or updates every table the API owns.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.Schema()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
