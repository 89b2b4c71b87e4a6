package migrations

import (
	"destek.link/configs/configslog"
	"destek.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func MigrateAttachmentsTable(db *gorm.DB) error {
	configslog.SLog.Info("Migrating attachments table...")
	if err := db.AutoMigrate(&models.Attachment{}); err != nil {
		configslog.Log.Error("Failed to migrate attachments table", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Attachments table migrated successfully")
	return nil
}
