package configslog

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log yapılandırılmış hata/uyarı logları, SLog bilgi satırları içindir.
// InitLogger çağrılana kadar ikisi de no-op'tur; testler logger kurmadan çalışır.
var (
	Log  = zap.NewNop()
	SLog = Log.Sugar()
)

// InitLogger APP_ENV'e göre development veya production logger kurar.
// LOG_LEVEL (debug|info|warn|error) verilirse seviyeyi değiştirir.
func InitLogger() {
	var cfg zap.Config
	if strings.EqualFold(os.Getenv("APP_ENV"), "production") {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zapcore.ParseLevel(lvl); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(parsed)
		}
	}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		panic("Logger başlatılamadı: " + err.Error())
	}
	SetLogger(logger)
}

// InitFileLogger logları bir dosyaya yazar. Terminal arayüzü ekranı
// kullanırken stderr'e log basılamaz.
func InitFileLogger(path string) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger global logger'ı değiştirir (testlerde observer logger için).
func SetLogger(l *zap.Logger) {
	Log = l
	SLog = l.Sugar()
}

// SyncLogger tamponlanmış logları yazar. Çıkışta defer ile çağrılır.
func SyncLogger() {
	_ = Log.Sync()
}
