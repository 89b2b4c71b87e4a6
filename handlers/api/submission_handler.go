package handlers

import (
	"errors"

	"destek.link/configs/configslog"
	"destek.link/pkg/formschema"
	"destek.link/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SubmissionHandler kesin gönderim uç noktası.
type SubmissionHandler struct {
	service services.ISubmissionService
	schemas *formschema.Registry
}

// NewSubmissionHandler yeni bir SubmissionHandler örneği oluşturur.
func NewSubmissionHandler() *SubmissionHandler {
	return &SubmissionHandler{
		service: services.NewSubmissionService(),
		schemas: formschema.Default(),
	}
}

// Submit formu gönderir. JSON gövde ya da JS'siz tarayıcıdan gelen
// form-urlencoded gövde kabul edilir.
//
// 201 {"success":true,"id":...}, doğrulama hatasında 422 {"success":false,"errors":{...}}.
func (h *SubmissionHandler) Submit(c *fiber.Ctx) error {
	kind := c.Params("kind")
	schema, ok := h.schemas.Get(kind)
	if !ok {
		return jsonError(c, fiber.StatusNotFound, "Form bulunamadı")
	}
	owner, ok := ownerOrAbort(c)
	if !ok {
		return nil
	}

	in := services.SubmitInput{OwnerKey: owner, Kind: kind, RemoteAddr: c.IP()}
	switch {
	case c.Is("json"):
		var p formPayload
		if err := decodeJSON(c, &p); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Geçersiz gönderim verisi")
		}
		in.InstanceID = p.InstanceID
		in.Fields = p.Fields
	default:
		in.InstanceID = c.FormValue("instance_id")
		in.Fields = formValues(c, schema)
	}

	sub, err := h.service.Submit(c.UserContext(), in)
	if err != nil {
		var verr *formschema.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"success": false, "errors": verr.Fields})
		}
		if errors.Is(err, services.ErrSubmissionInvalid) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		configslog.Log.Error("API - Submit Error", zap.String("kind", kind), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Gönderim kaydedilemedi"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "id": sub.ReferenceNo})
}

// GetSubmission gönderimin durumunu sadece gönderen oturuma gösterir.
// Başka oturumun referans numarası bilinse bile 404 döner.
func (h *SubmissionHandler) GetSubmission(c *fiber.Ctx) error {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return nil
	}
	sub, err := h.service.GetByReference(c.UserContext(), c.Params("ref"))
	if err != nil {
		if errors.Is(err, services.ErrSubmissionNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Gönderim bulunamadı")
		}
		configslog.Log.Error("API - GetSubmission Error", zap.String("ref", c.Params("ref")), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Gönderim alınamadı")
	}
	if sub.OwnerKey != owner || sub.FormKind != c.Params("kind") {
		return jsonError(c, fiber.StatusNotFound, "Gönderim bulunamadı")
	}
	return c.JSON(sub)
}

// formValues form gövdesinden tanımdaki alanları okur. Liste alanları tekrar
// eden anahtarlardan toplanır.
func formValues(c *fiber.Ctx, schema *formschema.Schema) map[string]any {
	args := c.Request().PostArgs()
	out := make(map[string]any, len(schema.Fields))
	for _, f := range schema.Fields {
		if f.Type == formschema.TypeList {
			raw := args.PeekMulti(f.Name)
			if len(raw) == 0 {
				continue
			}
			items := make([]string, 0, len(raw))
			for _, v := range raw {
				items = append(items, string(v))
			}
			out[f.Name] = items
			continue
		}
		if args.Has(f.Name) {
			out[f.Name] = string(args.Peek(f.Name))
		}
	}
	return out
}
