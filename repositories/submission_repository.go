package repositories

import (
	"context"
	"errors"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ISubmissionRepository kesin gönderim kayıtları için arayüz.
type ISubmissionRepository interface {
	Create(ctx context.Context, sub *models.Submission) error
	FindByReferenceNo(ctx context.Context, ref string) (*models.Submission, error)
	FindByInstanceID(ctx context.Context, ownerKey, instanceID string) (*models.Submission, error)
}

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository() ISubmissionRepository {
	return &SubmissionRepository{db: configs.GetDB()}
}

func NewSubmissionRepositoryTx(tx *gorm.DB) ISubmissionRepository {
	return &SubmissionRepository{db: tx}
}

func (r *SubmissionRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *SubmissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	if sub == nil || sub.ReferenceNo == "" || sub.FormKind == "" {
		return errors.New("geçersiz gönderim kaydı")
	}
	return r.getDB(ctx).Create(sub).Error
}

func (r *SubmissionRepository) FindByReferenceNo(ctx context.Context, ref string) (*models.Submission, error) {
	var sub models.Submission
	err := r.getDB(ctx).Where("reference_no = ?", ref).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		configslog.Log.Error("SubmissionRepository.FindByReferenceNo: DB error", zap.String("ref", ref), zap.Error(err))
		return nil, err
	}
	return &sub, nil
}

// FindByInstanceID sahibin bu form örneğini daha önce gönderip göndermediğini
// bulur. Başka bir sahibin aynı örnek kimliğiyle yaptığı gönderim görülmez.
func (r *SubmissionRepository) FindByInstanceID(ctx context.Context, ownerKey, instanceID string) (*models.Submission, error) {
	var sub models.Submission
	err := r.getDB(ctx).Where("owner_key = ? AND instance_id = ?", ownerKey, instanceID).First(&sub).Error
	if err != nil {
		return nil, translateNotFound(err)
	}
	return &sub, nil
}

var _ ISubmissionRepository = (*SubmissionRepository)(nil)
