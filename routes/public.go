package routes

import (
	public_handlers "destek.link/handlers/public"

	"github.com/gofiber/fiber/v2"
)

// registerPublicRoutes form sayfalarını tanımlar.
func registerPublicRoutes(app *fiber.App) {
	formHandler := public_handlers.NewFormPageHandler()

	app.Get("/", func(c *fiber.Ctx) error { return c.Redirect("/contact", fiber.StatusFound) })
	app.Get("/contact", formHandler.ShowForm)     // GET /contact
	app.Get("/forms/:kind", formHandler.ShowForm) // GET /forms/{kind}
}
