package routes

import (
	"time"

	"destek.link/configs"
	api_handlers "destek.link/handlers/api"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// registerAPIRoutes taslak, gönderim ve yükleme uç noktalarını tanımlar.
func registerAPIRoutes(app *fiber.App, cfg configs.AppConfig) {
	draftHandler := api_handlers.NewDraftHandler()
	submissionHandler := api_handlers.NewSubmissionHandler()
	uploadHandler := api_handlers.NewUploadHandler()

	apiGroup := app.Group("/api")

	// --- Taslaklar ---
	apiGroup.Get("/drafts/:kind", draftHandler.GetDraft)       // GET /api/drafts/{kind}
	apiGroup.Put("/drafts/:kind", draftHandler.SaveDraft)      // PUT /api/drafts/{kind}
	apiGroup.Post("/drafts/:kind", draftHandler.SaveDraft)     // POST /api/drafts/{kind} (sendBeacon sadece POST gönderir)
	apiGroup.Delete("/drafts/:kind", draftHandler.DeleteDraft) // DELETE /api/drafts/{kind}

	// --- Kesin gönderimler ---
	submitLimiter := limiter.New(limiter.Config{
		Max:        cfg.SubmitRatePerMin,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"success": false, "error": "Çok fazla gönderim, lütfen biraz bekleyin"})
		},
	})
	apiGroup.Post("/forms/:kind/submissions", submitLimiter, submissionHandler.Submit) // POST /api/forms/{kind}/submissions
	apiGroup.Get("/forms/:kind/submissions/:ref", submissionHandler.GetSubmission)     // GET /api/forms/{kind}/submissions/{ref}

	// --- Ek dosyalar ---
	apiGroup.Post("/uploads", uploadHandler.Upload) // POST /api/uploads?kind={kind}
	app.Get("/uploads/*", uploadHandler.Serve)      // GET /uploads/{key}
}
