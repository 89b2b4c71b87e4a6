package handlers

import (
	"errors"

	"destek.link/configs/configslog"
	"destek.link/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DraftHandler taslak kaydetme / geri yükleme uç noktaları.
type DraftHandler struct {
	service services.IDraftService
}

// NewDraftHandler yeni bir DraftHandler örneği oluşturur.
func NewDraftHandler() *DraftHandler {
	return &DraftHandler{service: services.NewDraftService()}
}

// SaveDraft taslağın üzerine yazar. Gövde JSON ({"instance_id","fields"}) ya
// da ek dosya varsa multipart'tır ("instance_id", JSON "fields", "attachment"
// dosyası ve "attachment_field").
//
// 200 kaydedildi, 204 boş taslak, 202 form örneği zaten gönderilmiş.
func (h *DraftHandler) SaveDraft(c *fiber.Ctx) error {
	kind := c.Params("kind")
	owner, ok := ownerOrAbort(c)
	if !ok {
		return nil
	}

	in := services.DraftInput{OwnerKey: owner, Kind: kind}
	if isMultipart(c) {
		closeFile, err := h.parseMultipart(c, &in)
		if err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Geçersiz taslak verisi")
		}
		defer closeFile()
	} else {
		var p formPayload
		if err := decodeJSON(c, &p); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "Geçersiz taslak verisi")
		}
		in.InstanceID = p.InstanceID
		in.Fields = p.Fields
	}

	draft, err := h.service.SaveDraft(c.UserContext(), in)
	if err != nil {
		if status, ok := uploadStatus(err); ok {
			return jsonError(c, status, err.Error())
		}
		switch {
		case errors.Is(err, services.ErrDraftEmpty):
			return c.SendStatus(fiber.StatusNoContent)
		case errors.Is(err, services.ErrDraftClosed):
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"saved": false, "reason": "closed"})
		case errors.Is(err, services.ErrDraftKindUnknown):
			return jsonError(c, fiber.StatusNotFound, "Form bulunamadı")
		case errors.Is(err, services.ErrDraftInvalid):
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		configslog.Log.Error("API - SaveDraft Error", zap.String("kind", kind), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Taslak kaydedilemedi")
	}

	return c.JSON(fiber.Map{
		"saved":    true,
		"revision": draft.Revision,
		"saved_at": draft.SavedAt,
	})
}

// parseMultipart multipart taslağı okur. Dönen fonksiyon açılan eki kapatır.
func (h *DraftHandler) parseMultipart(c *fiber.Ctx, in *services.DraftInput) (func(), error) {
	noop := func() {}
	form, err := c.MultipartForm()
	if err != nil {
		return noop, err
	}
	in.InstanceID = c.FormValue("instance_id")
	if raw := c.FormValue("fields"); raw != "" {
		if err := c.App().Config().JSONDecoder([]byte(raw), &in.Fields); err != nil {
			return noop, err
		}
	}
	files := form.File["attachment"]
	if len(files) == 0 {
		return noop, nil
	}
	fh := files[0]
	f, err := fh.Open()
	if err != nil {
		return noop, err
	}
	in.AttachmentField = c.FormValue("attachment_field")
	in.Attachment = &services.UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}
	return func() { _ = f.Close() }, nil
}

// GetDraft sahibin açık taslağını döndürür; yoksa 404.
func (h *DraftHandler) GetDraft(c *fiber.Ctx) error {
	kind := c.Params("kind")
	owner, ok := ownerOrAbort(c)
	if !ok {
		return nil
	}
	draft, err := h.service.GetDraft(c.UserContext(), owner, kind)
	if err != nil {
		if errors.Is(err, services.ErrDraftNotFound) || errors.Is(err, services.ErrDraftKindUnknown) {
			return jsonError(c, fiber.StatusNotFound, "Taslak bulunamadı")
		}
		configslog.Log.Error("API - GetDraft Error", zap.String("kind", kind), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Taslak alınamadı")
	}
	return c.JSON(draft)
}

// DeleteDraft taslağı siler.
func (h *DraftHandler) DeleteDraft(c *fiber.Ctx) error {
	kind := c.Params("kind")
	owner, ok := ownerOrAbort(c)
	if !ok {
		return nil
	}
	if err := h.service.DiscardDraft(c.UserContext(), owner, kind); err != nil {
		if errors.Is(err, services.ErrDraftNotFound) || errors.Is(err, services.ErrDraftKindUnknown) {
			return jsonError(c, fiber.StatusNotFound, "Taslak bulunamadı")
		}
		configslog.Log.Error("API - DeleteDraft Error", zap.String("kind", kind), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Taslak silinemedi")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
