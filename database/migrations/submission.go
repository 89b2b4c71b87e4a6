package migrations

import (
	"destek.link/configs/configslog"
	"destek.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func MigrateSubmissionsTable(db *gorm.DB) error {
	configslog.SLog.Info("Migrating submissions table...")
	if err := db.AutoMigrate(&models.Submission{}); err != nil {
		configslog.Log.Error("Failed to migrate submissions table", zap.Error(err))
		return err
	}
	// Örnek kimliği artık sahip ile birlikte benzersiz; eski tekil indeks kaldırılır.
	const legacyIndex = "idx_submissions_instance_id"
	if db.Migrator().HasIndex(&models.Submission{}, legacyIndex) {
		if err := db.Migrator().DropIndex(&models.Submission{}, legacyIndex); err != nil {
			configslog.Log.Error("Failed to drop legacy submissions index", zap.Error(err))
			return err
		}
	}
	configslog.SLog.Info("Submissions table migrated successfully")
	return nil
}
