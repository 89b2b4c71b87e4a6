package handlers

import (
	"errors"
	"maps"

	"destek.link/configs/configslog"
	"destek.link/pkg/formschema"
	"destek.link/services"
	"destek.link/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FormPageHandler formların HTML sayfaları.
type FormPageHandler struct {
	drafts  services.IDraftService
	schemas *formschema.Registry
}

// NewFormPageHandler yeni bir FormPageHandler örneği oluşturur.
func NewFormPageHandler() *FormPageHandler {
	return &FormPageHandler{
		drafts:  services.NewDraftService(),
		schemas: formschema.Default(),
	}
}

// ShowForm formu, varsa ziyaretçinin taslağıyla doldurulmuş olarak gösterir.
// Her sayfa yüklemesi yeni bir form örneğidir.
func (h *FormPageHandler) ShowForm(c *fiber.Ctx) error {
	kind := c.Params("kind", "contact")
	schema, ok := h.schemas.Get(kind)
	if !ok {
		return h.renderNotFound(c, "Form bulunamadı")
	}

	values := map[string]any{}
	if owner, err := utils.OwnerKey(c); err == nil {
		draft, err := h.drafts.GetDraft(c.UserContext(), owner, kind)
		switch {
		case err == nil:
			maps.Copy(values, draft.Fields)
		case !errors.Is(err, services.ErrDraftNotFound):
			configslog.Log.Warn("Taslak yüklenemedi", zap.String("kind", kind), zap.Error(err))
		}
	} else {
		configslog.Log.Warn("Oturum açılamadı", zap.Error(err))
	}
	// Geçici alanlar taslaktan gelmez; sayfayı açan bağlantı belirler (ör. ?source=footer).
	for _, name := range schema.TransientFields() {
		values[name] = c.Query(name, "web")
	}

	return c.Render("public/form", fiber.Map{
		"Title":      schema.Title,
		"Schema":     schema,
		"Values":     values,
		"InstanceID": uuid.NewString(),
		"Sent":       c.Query("sent"),
	}, "layouts/public_layout")
}

func (h *FormPageHandler) renderNotFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).Render("errors/404", fiber.Map{
		"Title":   "Bulunamadı",
		"Message": message,
	}, "layouts/public_layout")
}
