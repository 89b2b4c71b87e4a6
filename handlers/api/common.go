package handlers

import (
	"errors"
	"strings"

	"destek.link/configs/configslog"
	"destek.link/services"
	"destek.link/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// formPayload taslak ve gönderim uç noktalarının JSON gövdesi.
type formPayload struct {
	InstanceID string         `json:"instance_id"`
	Fields     map[string]any `json:"fields"`
}

// decodeJSON gövdeyi uygulamanın JSON çözücüsüyle okur. Sayfa kapanırken
// gönderilen beacon istekleri text/plain geldiği için Content-Type'a bakılmaz.
func decodeJSON(c *fiber.Ctx, out any) error {
	body := c.Body()
	if len(body) == 0 {
		return errors.New("boş gövde")
	}
	return c.App().Config().JSONDecoder(body, out)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// ownerOrAbort sahiplik anahtarını çözer; çözülemezse 500 yanıtı yazılır.
func ownerOrAbort(c *fiber.Ctx) (string, bool) {
	owner, err := utils.OwnerKey(c)
	if err != nil {
		configslog.Log.Error("Oturum açılamadı", zap.String("path", c.Path()), zap.Error(err))
		_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Oturum açılamadı"})
		return "", false
	}
	return owner, true
}

// uploadStatus yükleme hatalarını HTTP durum kodlarına çevirir.
func uploadStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, services.ErrUploadTooLarge):
		return fiber.StatusRequestEntityTooLarge, true
	case errors.Is(err, services.ErrUploadTypeRejected):
		return fiber.StatusUnsupportedMediaType, true
	case errors.Is(err, services.ErrUploadEmpty):
		return fiber.StatusBadRequest, true
	case errors.Is(err, services.ErrUploadKindUnknown):
		return fiber.StatusNotFound, true
	}
	return 0, false
}

func jsonError(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
