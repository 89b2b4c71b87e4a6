package repositories

import (
	"context"
	"errors"

	"destek.link/configs"
	"destek.link/models"

	"gorm.io/gorm"
)

// IAttachmentRepository ek dosya kayıtları için arayüz.
type IAttachmentRepository interface {
	Create(ctx context.Context, a *models.Attachment) error
	FindByID(ctx context.Context, id uint) (*models.Attachment, error)
	Delete(ctx context.Context, id uint) error
}

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository() IAttachmentRepository {
	return &AttachmentRepository{db: configs.GetDB()}
}

func (r *AttachmentRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *AttachmentRepository) Create(ctx context.Context, a *models.Attachment) error {
	if a == nil || a.StorageKey == "" {
		return errors.New("geçersiz ek kaydı")
	}
	return r.getDB(ctx).Create(a).Error
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id uint) (*models.Attachment, error) {
	if id == 0 {
		return nil, errors.New("geçersiz ek ID")
	}
	var a models.Attachment
	if err := r.getDB(ctx).First(&a, id).Error; err != nil {
		return nil, translateNotFound(err)
	}
	return &a, nil
}

// Delete kaydı kalıcı olarak siler. Depodaki dosya servis tarafından silinir.
func (r *AttachmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.getDB(ctx).Unscoped().Delete(&models.Attachment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

var _ IAttachmentRepository = (*AttachmentRepository)(nil)
