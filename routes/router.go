package routes

import (
	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/pkg/metrics"
	"destek.link/utils"
	"destek.link/views"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/logger"
	recoverMiddleware "github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// SetupRoutes tüm uygulama rotalarını ve genel middleware'leri ayarlar.
func SetupRoutes(app *fiber.App, cfg configs.AppConfig) {
	// --- Genel Middleware'ler ---
	app.Use(recoverMiddleware.New(recoverMiddleware.Config{EnableStackTrace: !cfg.IsProduction()})) // Panic yakalama
	if !cfg.IsProduction() {
		app.Use(logger.New()) // İstek loglama
	}
	app.Use(initializeSessionAndLocals())

	app.Use("/static", filesystem.New(filesystem.Config{Root: views.Static(), MaxAge: 3600}))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// --- Rota Grupları ---
	registerAPIRoutes(app, cfg)
	registerPublicRoutes(app)

	// --- 404 Handler ---
	app.Use(notFoundHandler)
}

// initializeSessionAndLocals oturum deposunu Locals'a koyar; giriş yapmış
// kullanıcı varsa ID'si de eklenir.
func initializeSessionAndLocals() fiber.Handler {
	sessionStore := configs.SetupSession()
	return func(c *fiber.Ctx) error {
		c.Locals(utils.SessionStoreKey, sessionStore)
		sess, err := utils.SessionStart(c)
		if err != nil {
			configslog.Log.Warn("Oturum başlatılamadı", zap.Error(err))
			return c.Next()
		}
		if userID, err := utils.GetUserIDFromSession(sess); err == nil {
			c.Locals("userID", userID)
		}
		return c.Next()
	}
}

func notFoundHandler(c *fiber.Ctx) error {
	accepts := c.Accepts("application/json", "text/html")
	switch accepts {
	case "application/json":
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Kaynak bulunamadı"})
	default:
		return c.Status(fiber.StatusNotFound).Render("errors/404", fiber.Map{"Title": "Sayfa Bulunamadı"}, "layouts/public_layout")
	}
}
