package configs

import "time"

// AppConfig sunucunun çalışma ayarları.
type AppConfig struct {
	Env               string
	Port              string
	UploadMaxBytes    int64
	SubmitRatePerMin  int
	DraftRetention    time.Duration // bu süreden eski taslaklar silinir
	JanitorInterval   time.Duration
	ShutdownTimeout   time.Duration
	BlobPublicBaseURL string
}

// LoadAppConfig ortam değişkenlerinden AppConfig üretir.
func LoadAppConfig() AppConfig {
	return AppConfig{
		Env:               GetEnv("APP_ENV", "development"),
		Port:              GetEnv("APP_PORT", "3000"),
		UploadMaxBytes:    GetEnvInt64("UPLOAD_MAX_BYTES", 10<<20),
		SubmitRatePerMin:  GetEnvInt("SUBMIT_RATE_PER_MIN", 10),
		DraftRetention:    time.Duration(GetEnvInt("DRAFT_RETENTION_DAYS", 30)) * 24 * time.Hour,
		JanitorInterval:   time.Duration(GetEnvInt("DRAFT_JANITOR_MINUTES", 60)) * time.Minute,
		ShutdownTimeout:   10 * time.Second,
		BlobPublicBaseURL: GetEnv("BLOB_PUBLIC_BASE_URL", "/uploads"),
	}
}

func (c AppConfig) IsProduction() bool { return c.Env == "production" }
