// Package dbtest testler için migrasyonları çalıştırılmış bellek içi SQLite
// veritabanı sağlar.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"destek.link/configs"
	"destek.link/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// New her çağrıda ayrı bir veritabanı açar, configs.SetDB ile global yapar ve
// test bitince kapatır.
func New(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		tb.Fatalf("sqlite açılamadı: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sqlite havuzu alınamadı: %v", err)
	}
	// SQLite tek yazar kabul eder; iç içe bağlantılar kilitlenmesin.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Initialize(db); err != nil {
		tb.Fatalf("migrasyon başarısız: %v", err)
	}

	prev := configs.GetDB()
	configs.SetDB(db)
	tb.Cleanup(func() {
		configs.SetDB(prev)
		_ = sqlDB.Close()
	})
	return db
}
