package utils

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// SessionStoreKey oturum deposunun fiber Locals anahtarı.
const SessionStoreKey = "session_store"

var (
	ErrSessionStoreMissing = errors.New("oturum deposu bulunamadı")
	ErrUserIDNotFound      = errors.New("oturumda kullanıcı ID bulunamadı")
)

// SessionStart isteğin oturumunu açar. Depo, router middleware'i tarafından
// Locals'a konur.
func SessionStart(c *fiber.Ctx) (*session.Session, error) {
	store, ok := c.Locals(SessionStoreKey).(*session.Store)
	if !ok || store == nil {
		return nil, ErrSessionStoreMissing
	}
	return store.Get(c)
}

// GetUserIDFromSession oturumdaki kullanıcı ID'sini döndürür. Ziyaretçi
// oturumlarında ErrUserIDNotFound döner.
func GetUserIDFromSession(sess *session.Session) (uint, error) {
	switch v := sess.Get("user_id").(type) {
	case uint:
		return v, nil
	case int:
		if v > 0 {
			return uint(v), nil
		}
	case float64:
		if v > 0 {
			return uint(v), nil
		}
	}
	return 0, ErrUserIDNotFound
}

// OwnerKey taslak ve gönderimlerin sahiplik anahtarı: giriş yapmış kullanıcı
// için "u:<id>", ziyaretçi için "s:<oturum id>". Yeni oturum çerezle birlikte
// kaydedilir ki sonraki taslaklar aynı sahibe yazılsın.
func OwnerKey(c *fiber.Ctx) (string, error) {
	sess, err := SessionStart(c)
	if err != nil {
		return "", err
	}
	if id, err := GetUserIDFromSession(sess); err == nil {
		return fmt.Sprintf("u:%d", id), nil
	}
	// Save sonrası oturum havuza döner; ID önce alınır.
	key := "s:" + sess.ID()
	if sess.Fresh() {
		sess.Set("visitor", true)
		if err := sess.Save(); err != nil {
			return "", err
		}
	}
	return key, nil
}
