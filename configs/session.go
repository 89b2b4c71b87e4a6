package configs

import (
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
)

// SetupSession taslakların sahiplik anahtarı olan oturum çerezini ayarlar.
// Taslaklar oturum kimliğine bağlı olduğu için çerez uzun ömürlüdür.
func SetupSession() *session.Store {
	return session.New(session.Config{
		KeyLookup:      "cookie:" + GetEnv("SESSION_COOKIE", "destek_session"),
		Expiration:     time.Duration(GetEnvInt("SESSION_DAYS", 30)) * 24 * time.Hour,
		CookieHTTPOnly: true,
		CookieSecure:   GetEnv("APP_ENV", "development") == "production",
		CookieSameSite: "Lax",
	})
}
