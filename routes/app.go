package routes

import (
	"errors"
	"time"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/views"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// NewApp görünüm motoru ve rotalarıyla fiber uygulamasını kurar.
func NewApp(cfg configs.AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "destek.link",
		Views:        views.NewEngine(),
		BodyLimit:    int(cfg.UploadMaxBytes) + 1<<20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler,
	})
	SetupRoutes(app, cfg)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		configslog.Log.Error("İstek işlenemedi", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
