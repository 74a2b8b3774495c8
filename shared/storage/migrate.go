package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pavitra93/go-multi-tenant-rsvp/shared/models"
)

// Migrate creates or updates the tenants and guests tables. It is
// idempotent and meant to run once at startup, before any store is used.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&models.Tenant{}, &models.Guest{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
