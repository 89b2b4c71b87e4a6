package configs

import (
	"os"
	"strconv"
	"strings"

	"destek.link/configs/configslog"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// LoadEnv varsa .env dosyasını okur. Dosya yoksa ortam değişkenleri kullanılır.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		configslog.SLog.Info(".env dosyası bulunamadı, ortam değişkenleri kullanılacak.")
	}
}

// GetEnv değişken boşsa fallback döner.
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		configslog.Log.Warn("Geçersiz sayısal ortam değişkeni, varsayılan kullanılıyor",
			zap.String("key", key), zap.String("value", raw), zap.Int("fallback", fallback))
		return fallback
	}
	return n
}

func GetEnvInt64(key string, fallback int64) int64 {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		configslog.Log.Warn("Geçersiz sayısal ortam değişkeni, varsayılan kullanılıyor",
			zap.String("key", key), zap.String("value", raw), zap.Int64("fallback", fallback))
		return fallback
	}
	return n
}

func GetEnvBool(key string, fallback bool) bool {
	raw := GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}
