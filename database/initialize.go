package database

import (
	"errors"
	"fmt"

	"destek.link/configs/configslog"
	"destek.link/database/migrations"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Initialize migrasyonları tek bir transaction içinde çalıştırır. Herhangi bir
// adım başarısız olursa tümü geri alınır.
func Initialize(db *gorm.DB) (err error) {
	tx := db.Begin()
	if tx.Error != nil {
		configslog.Log.Error("Veritabanı transaction başlatılamadı", zap.Error(tx.Error))
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			configslog.Log.Error("Veritabanı başlatma işlemi başarısız oldu (panic)", zap.Any("panic_info", r))
			err = fmt.Errorf("migrasyon paniği: %v", r)
			return
		}
		if err != nil {
			configslog.SLog.Warn("Başlatma sırasında hata oluştuğu için işlem geri alınıyor.")
			if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, gorm.ErrInvalidTransaction) {
				configslog.Log.Error("Rollback sırasında ek hata oluştu", zap.Error(rbErr))
			}
		}
	}()

	configslog.SLog.Info("Migrasyonlar çalıştırılıyor...")
	if err = RunMigrationsInOrder(tx); err != nil {
		configslog.Log.Error("Migrasyon başarısız oldu", zap.Error(err))
		return err
	}

	configslog.SLog.Info("İşlem commit ediliyor...")
	if err = tx.Commit().Error; err != nil {
		configslog.Log.Error("Commit başarısız oldu", zap.Error(err))
		return err
	}
	configslog.SLog.Info("Veritabanı başlatma işlemi başarıyla tamamlandı")
	return nil
}

// RunMigrationsInOrder tabloları bağımlılık sırasıyla oluşturur.
func RunMigrationsInOrder(db *gorm.DB) error {
	steps := []struct {
		name string
		fn   func(*gorm.DB) error
	}{
		{"Attachment", migrations.MigrateAttachmentsTable},
		{"Draft", migrations.MigrateDraftsTable},
		{"Submission", migrations.MigrateSubmissionsTable},
	}
	for _, step := range steps {
		configslog.SLog.Infof(" -> %s migrasyonları çalıştırılıyor...", step.name)
		if err := step.fn(db); err != nil {
			return fmt.Errorf("%s migrasyonu: %w", step.name, err)
		}
	}
	configslog.SLog.Info("Tüm migrasyonlar başarıyla çalıştırıldı.")
	return nil
}
