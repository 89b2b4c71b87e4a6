package services

import (
	"context"
	"errors"
	"fmt"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/models"
	"destek.link/pkg/formschema"
	"destek.link/pkg/metrics"
	"destek.link/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SubmissionServiceError özel servis hataları
type SubmissionServiceError string

func (e SubmissionServiceError) Error() string { return string(e) }

const (
	ErrSubmissionKindUnknown SubmissionServiceError = "bilinmeyen form türü"
	ErrSubmissionInvalid     SubmissionServiceError = "geçersiz gönderim verisi"
	ErrSubmissionFailed      SubmissionServiceError = "gönderim kaydedilemedi"
	ErrSubmissionNotFound    SubmissionServiceError = "gönderim bulunamadı"
)

// SubmitInput kesin gönderim. InstanceID boşsa sunucu üretir.
type SubmitInput struct {
	OwnerKey   string
	Kind       string
	InstanceID string
	RemoteAddr string
	Fields     map[string]any
}

// ISubmissionService kesin gönderim işlemleri için arayüz.
type ISubmissionService interface {
	Submit(ctx context.Context, in SubmitInput) (*models.Submission, error)
	GetByReference(ctx context.Context, ref string) (*models.Submission, error)
}

// SubmissionService ISubmissionService arayüzünü uygular.
type SubmissionService struct {
	repo    repositories.ISubmissionRepository
	uploads IUploadService
	schemas *formschema.Registry
	db      *gorm.DB
}

// NewSubmissionService yeni bir SubmissionService örneği oluşturur (DI ile).
func NewSubmissionService() ISubmissionService {
	return &SubmissionService{
		repo:    repositories.NewSubmissionRepository(),
		uploads: NewUploadService(),
		schemas: formschema.Default(),
		db:      configs.GetDB(),
	}
}

// Submit gönderimi doğrular, kaydeder ve aynı transaction içinde sahibin
// taslağını kapatır. Aynı sahip aynı form örneğini ikinci kez gönderirse ilk
// kayıt döner. Geçici alanlar gönderimle birlikte saklanır.
// Doğrulama hataları *formschema.ValidationError olarak döner.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*models.Submission, error) {
	schema, ok := s.schemas.Get(in.Kind)
	if !ok {
		return nil, ErrSubmissionKindUnknown
	}
	if in.OwnerKey == "" {
		return nil, fmt.Errorf("%w: sahip anahtarı boş", ErrSubmissionInvalid)
	}
	if in.InstanceID == "" {
		in.InstanceID = uuid.NewString()
	} else if prev, err := s.repo.FindByInstanceID(ctx, in.OwnerKey, in.InstanceID); err == nil {
		configslog.SLog.Infof("Form örneği zaten gönderilmiş, mevcut kayıt döndürülüyor: %s", prev.ReferenceNo)
		return prev, nil
	}

	fields, err := schema.NormalizeSubmission(in.Fields)
	if err == nil {
		err = schema.Validate(fields)
	}
	if err != nil {
		metrics.Submissions.WithLabelValues(in.Kind, metrics.ResultInvalid).Inc()
		return nil, err
	}

	sub := &models.Submission{
		ReferenceNo: uuid.NewString(),
		FormKind:    in.Kind,
		OwnerKey:    in.OwnerKey,
		InstanceID:  in.InstanceID,
		Fields:      fields,
		Status:      models.SubmissionStatusNew,
		RemoteAddr:  in.RemoteAddr,
	}

	var draftAttachment *uint
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := repositories.NewSubmissionRepositoryTx(tx).Create(ctx, sub); err != nil {
			return err
		}
		var closeErr error
		draftAttachment, closeErr = repositories.NewDraftRepositoryTx(tx).Close(ctx, in.OwnerKey, in.Kind, in.InstanceID)
		return closeErr
	})
	if err != nil {
		// Eşzamanlı aynı örnek gönderimi benzersiz indekse takılmış olabilir.
		if prev, findErr := s.repo.FindByInstanceID(ctx, in.OwnerKey, in.InstanceID); findErr == nil {
			return prev, nil
		}
		metrics.Submissions.WithLabelValues(in.Kind, metrics.ResultError).Inc()
		configslog.Log.Error("SubmissionService.Submit: kaydedilemedi", zap.String("kind", in.Kind), zap.Error(err))
		return nil, ErrSubmissionFailed
	}

	if draftAttachment != nil {
		if err := s.uploads.Remove(context.WithoutCancel(ctx), *draftAttachment); err != nil && !errors.Is(err, ErrUploadNotFound) {
			configslog.Log.Warn("Kapatılan taslağın eki silinemedi", zap.Uint("attachment_id", *draftAttachment), zap.Error(err))
		}
	}

	metrics.Submissions.WithLabelValues(in.Kind, metrics.ResultOK).Inc()
	configslog.SLog.Infof("Yeni gönderim alındı: %s (%s)", sub.ReferenceNo, in.Kind)
	return sub, nil
}

// GetByReference gönderimi referans numarasıyla getirir.
func (s *SubmissionService) GetByReference(ctx context.Context, ref string) (*models.Submission, error) {
	sub, err := s.repo.FindByReferenceNo(ctx, ref)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}
	return sub, nil
}

var _ ISubmissionService = (*SubmissionService)(nil)
