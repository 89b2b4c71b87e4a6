package migrations

import (
	"destek.link/configs/configslog"
	"destek.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MigrateDraftsTable drafts tablosunu oluşturur. Attachments tablosundan sonra
// çalışmalıdır (attachment_id FK).
func MigrateDraftsTable(db *gorm.DB) error {
	configslog.SLog.Info("Migrating drafts table...")
	if err := db.AutoMigrate(&models.Draft{}); err != nil {
		configslog.Log.Error("Failed to migrate drafts table", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Drafts table migrated successfully")
	return nil
}
