package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"destek.link/configs/configslog"
	"destek.link/models"
	"destek.link/pkg/formschema"
	"destek.link/pkg/metrics"
	"destek.link/repositories"

	"go.uber.org/zap"
)

// DraftServiceError özel servis hataları
type DraftServiceError string

func (e DraftServiceError) Error() string { return string(e) }

const (
	ErrDraftKindUnknown DraftServiceError = "bilinmeyen form türü"
	ErrDraftInvalid     DraftServiceError = "geçersiz taslak verisi"
	ErrDraftEmpty       DraftServiceError = "boş taslak kaydedilmez"
	ErrDraftClosed      DraftServiceError = "form örneği gönderilmiş, taslak yok sayıldı"
	ErrDraftNotFound    DraftServiceError = "taslak bulunamadı"
	ErrDraftSaveFailed  DraftServiceError = "taslak kaydedilemedi"
)

// DraftInput bir taslak kaydı. Attachment doluysa dosya taslakla birlikte saklanır.
type DraftInput struct {
	OwnerKey        string
	Kind            string
	InstanceID      string
	Fields          map[string]any
	AttachmentField string
	Attachment      *UploadInput
}

// IDraftService taslak işlemleri için arayüz.
type IDraftService interface {
	SaveDraft(ctx context.Context, in DraftInput) (*models.Draft, error)
	GetDraft(ctx context.Context, ownerKey, kind string) (*models.Draft, error)
	DiscardDraft(ctx context.Context, ownerKey, kind string) error
	PurgeStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// DraftService IDraftService arayüzünü uygular.
type DraftService struct {
	repo    repositories.IDraftRepository
	uploads IUploadService
	schemas *formschema.Registry
	now     func() time.Time
}

// NewDraftService yeni bir DraftService örneği oluşturur (DI ile).
func NewDraftService() IDraftService {
	return &DraftService{
		repo:    repositories.NewDraftRepository(),
		uploads: NewUploadService(),
		schemas: formschema.Default(),
		now:     time.Now,
	}
}

// SaveDraft sahibin taslağını üzerine yazar. Taslaklar doğrulanmaz; sadece
// tanıma göre normalize edilir. Boş taslaklar ve gönderilmiş form örneğinden
// gelen geç taslaklar kaydedilmez. Ek dosya içermeyen bir kayıt, taslakta
// kayıtlı eki korur; ek ancak ek alanı boş değerle gönderilirse kaldırılır.
func (s *DraftService) SaveDraft(ctx context.Context, in DraftInput) (*models.Draft, error) {
	schema, ok := s.schemas.Get(in.Kind)
	if !ok {
		return nil, ErrDraftKindUnknown
	}
	if in.OwnerKey == "" {
		return nil, fmt.Errorf("%w: sahip anahtarı boş", ErrDraftInvalid)
	}
	fields, err := schema.Normalize(in.Fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDraftInvalid, err)
	}

	attachmentField := in.AttachmentField
	if attachmentField == "" && schema.Attachment != nil {
		attachmentField = schema.Attachment.Field
	}
	// Ek, ID'si ile taslağa bağlanır; alandaki dosya adı ayrıca saklanmaz.
	detach := false
	if attachmentField != "" {
		if v, ok := fields[attachmentField].(string); ok {
			detach = in.Attachment == nil && strings.TrimSpace(v) == ""
			delete(fields, attachmentField)
		}
	}

	if formschema.Blank(fields) && in.Attachment == nil {
		metrics.DraftsIgnored.WithLabelValues(in.Kind, metrics.ReasonEmpty).Inc()
		return nil, ErrDraftEmpty
	}

	if existing, err := s.repo.FindByOwnerAndKind(ctx, in.OwnerKey, in.Kind); err == nil {
		if existing.IsClosedFor(in.InstanceID) {
			metrics.DraftsIgnored.WithLabelValues(in.Kind, metrics.ReasonClosed).Inc()
			return nil, ErrDraftClosed
		}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrDraftSaveFailed
	}

	draft := &models.Draft{
		OwnerKey:   in.OwnerKey,
		FormKind:   in.Kind,
		InstanceID: in.InstanceID,
		Fields:     fields,
		SavedAt:    s.now().UTC(),
	}

	var stored *models.Attachment
	if in.Attachment != nil {
		up := *in.Attachment
		up.OwnerKey = in.OwnerKey
		up.Kind = in.Kind
		up.Purpose = "draft/" + in.Kind
		stored, err = s.uploads.Store(ctx, up)
		if err != nil {
			return nil, err
		}
		draft.AttachmentID = &stored.ID
		draft.AttachmentField = attachmentField
	}

	previous, err := s.repo.Upsert(ctx, draft, !detach)
	if err != nil {
		if stored != nil {
			s.removeAttachment(ctx, stored.ID)
		}
		// Gönderim, ön kontrol ile yazma arasında tamamlanmış olabilir.
		if errors.Is(err, repositories.ErrDraftClosed) {
			metrics.DraftsIgnored.WithLabelValues(in.Kind, metrics.ReasonClosed).Inc()
			return nil, ErrDraftClosed
		}
		configslog.Log.Error("DraftService.SaveDraft: taslak kaydedilemedi", zap.String("kind", in.Kind), zap.Error(err))
		return nil, ErrDraftSaveFailed
	}
	if previous != nil {
		s.removeAttachment(ctx, *previous)
	}

	metrics.DraftsSaved.WithLabelValues(in.Kind).Inc()
	configslog.SLog.Debugf("Taslak kaydedildi: %s (revizyon %d)", in.Kind, draft.Revision)
	return draft, nil
}

// GetDraft sahibin açık taslağını getirir. Gönderimle kapatılmış taslaklar
// bulunamadı sayılır.
func (s *DraftService) GetDraft(ctx context.Context, ownerKey, kind string) (*models.Draft, error) {
	if _, ok := s.schemas.Get(kind); !ok {
		return nil, ErrDraftKindUnknown
	}
	draft, err := s.repo.FindByOwnerAndKind(ctx, ownerKey, kind)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrDraftNotFound
		}
		return nil, err
	}
	if draft.ClosedAt != nil {
		return nil, ErrDraftNotFound
	}
	return draft, nil
}

// DiscardDraft taslağı ve varsa ekini siler.
func (s *DraftService) DiscardDraft(ctx context.Context, ownerKey, kind string) error {
	if _, ok := s.schemas.Get(kind); !ok {
		return ErrDraftKindUnknown
	}
	deleted, err := s.repo.Delete(ctx, ownerKey, kind)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrDraftNotFound
		}
		configslog.Log.Error("DraftService.DiscardDraft: silinemedi", zap.String("kind", kind), zap.Error(err))
		return err
	}
	if deleted.AttachmentID != nil {
		s.removeAttachment(ctx, *deleted.AttachmentID)
	}
	return nil
}

// PurgeStale olderThan süresinden uzun süredir kaydedilmemiş taslakları ve
// eklerini siler; silinen taslak sayısını döndürür.
func (s *DraftService) PurgeStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().UTC().Add(-olderThan)
	stale, err := s.repo.DeleteStaleBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, d := range stale {
		if d.AttachmentID != nil {
			s.removeAttachment(ctx, *d.AttachmentID)
		}
	}
	if n := len(stale); n > 0 {
		metrics.DraftsPurged.Add(float64(n))
		configslog.SLog.Infof("%d eski taslak silindi (eşik: %s)", n, cutoff.Format(time.RFC3339))
	}
	return len(stale), nil
}

func (s *DraftService) removeAttachment(ctx context.Context, id uint) {
	if err := s.uploads.Remove(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, ErrUploadNotFound) {
		configslog.Log.Warn("Taslak eki silinemedi", zap.Uint("attachment_id", id), zap.Error(err))
	}
}

var _ IDraftService = (*DraftService)(nil)
