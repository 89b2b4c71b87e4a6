package handlers

import (
	"errors"
	"strconv"

	"destek.link/configs/configslog"
	"destek.link/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadHandler ek dosya yükleme ve sunma uç noktaları.
type UploadHandler struct {
	service services.IUploadService
}

// NewUploadHandler yeni bir UploadHandler örneği oluşturur.
func NewUploadHandler() *UploadHandler {
	return &UploadHandler{service: services.NewUploadService()}
}

// Upload "file" alanındaki dosyayı saklar. ?kind= verilirse formun ek
// kuralları uygulanır.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	owner, ok := ownerOrAbort(c)
	if !ok {
		return nil
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Dosya bulunamadı")
	}
	f, err := fh.Open()
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Dosya okunamadı")
	}
	defer f.Close()

	att, err := h.service.Store(c.UserContext(), services.UploadInput{
		OwnerKey:    owner,
		Kind:        c.Query("kind"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		if status, ok := uploadStatus(err); ok {
			return jsonError(c, status, err.Error())
		}
		configslog.Log.Error("API - Upload Error", zap.String("file", fh.Filename), zap.Error(err))
		return jsonError(c, fiber.StatusInternalServerError, "Dosya kaydedilemedi")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":           att.ID,
		"url":          att.URL,
		"name":         att.FileName,
		"content_type": att.ContentType,
		"size":         att.Size,
	})
}

// Serve yerel depodaki dosyaları /uploads/* altında sunar.
func (h *UploadHandler) Serve(c *fiber.Ctx) error {
	key := c.Params("*")
	info, rc, err := h.service.Open(c.UserContext(), key)
	if err != nil {
		if errors.Is(err, services.ErrUploadNotFound) {
			return jsonError(c, fiber.StatusNotFound, "Dosya bulunamadı")
		}
		return jsonError(c, fiber.StatusInternalServerError, "Dosya açılamadı")
	}
	if info.ContentType != "" {
		c.Set(fiber.HeaderContentType, info.ContentType)
	}
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set(fiber.HeaderCacheControl, "private, max-age="+strconv.Itoa(3600))
	size := -1
	if info.Size > 0 {
		size = int(info.Size)
	}
	return c.SendStream(rc, size)
}
