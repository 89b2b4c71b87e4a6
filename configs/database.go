package configs

import (
	"fmt"
	"time"

	"destek.link/configs/configslog"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDB DB_* ortam değişkenleriyle PostgreSQL bağlantısını açar.
func InitDB() {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		GetEnv("DB_HOST", "localhost"),
		GetEnv("DB_PORT", "5432"),
		GetEnv("DB_USER", "postgres"),
		GetEnv("DB_PASSWORD", ""),
		GetEnv("DB_NAME", "destek"),
		GetEnv("DB_SSLMODE", "disable"),
	)

	logLevel := logger.Warn
	if GetEnv("APP_ENV", "development") != "production" {
		logLevel = logger.Info
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		configslog.Log.Fatal("Veritabanına bağlanılamadı", zap.Error(err))
	}

	sqlDB, err := conn.DB()
	if err != nil {
		configslog.Log.Fatal("Veritabanı havuzu alınamadı", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(GetEnvInt("DB_MAX_OPEN_CONNS", 20))
	sqlDB.SetMaxIdleConns(GetEnvInt("DB_MAX_IDLE_CONNS", 5))
	sqlDB.SetConnMaxLifetime(time.Hour)

	db = conn
	configslog.SLog.Info("Veritabanı bağlantısı kuruldu")
}

// GetDB açık bağlantıyı döndürür.
func GetDB() *gorm.DB {
	return db
}

// SetDB bağlantıyı dışarıdan ayarlar (testlerde sqlite).
func SetDB(conn *gorm.DB) {
	db = conn
}

// CloseDB bağlantıyı kapatır.
func CloseDB() {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		configslog.Log.Error("Veritabanı kapatılamadı", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		configslog.Log.Error("Veritabanı kapatılamadı", zap.Error(err))
		return
	}
	configslog.SLog.Info("Veritabanı bağlantısı kapatıldı")
}
