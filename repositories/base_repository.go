package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound kayıt bulunamadığında repository'lerin döndürdüğü hata.
var ErrNotFound = errors.New("kayıt bulunamadı")

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
