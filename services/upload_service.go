package services

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/models"
	"destek.link/pkg/autosave"
	"destek.link/pkg/blobstore"
	"destek.link/pkg/formschema"
	"destek.link/pkg/metrics"
	"destek.link/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadServiceError özel servis hataları
type UploadServiceError string

func (e UploadServiceError) Error() string { return string(e) }

const (
	ErrUploadTooLarge     UploadServiceError = "dosya izin verilen boyuttan büyük"
	ErrUploadTypeRejected UploadServiceError = "dosya türüne izin verilmiyor"
	ErrUploadEmpty        UploadServiceError = "boş dosya yüklenemez"
	ErrUploadKindUnknown  UploadServiceError = "bilinmeyen form türü"
	ErrUploadNotFound     UploadServiceError = "dosya bulunamadı"
	ErrUploadFailed       UploadServiceError = "dosya kaydedilemedi"
	ErrUploadStoreMissing UploadServiceError = "dosya deposu yapılandırılmamış"
)

// UploadInput yüklenecek dosya. Kind boş değilse formun ek kuralları uygulanır.
type UploadInput struct {
	OwnerKey    string
	Kind        string
	Purpose     string // boşsa Kind
	FileName    string
	ContentType string
	Size        int64 // bilinmiyorsa 0
	Body        io.Reader
}

// IUploadService ek dosya işlemleri için arayüz.
type IUploadService interface {
	Store(ctx context.Context, in UploadInput) (*models.Attachment, error)
	Open(ctx context.Context, key string) (blobstore.Info, io.ReadCloser, error)
	Remove(ctx context.Context, id uint) error
}

// UploadService IUploadService arayüzünü uygular.
type UploadService struct {
	repo     repositories.IAttachmentRepository
	store    blobstore.Store
	schemas  *formschema.Registry
	maxBytes int64
	now      func() time.Time
}

// NewUploadService yeni bir UploadService örneği oluşturur (DI ile).
func NewUploadService() IUploadService {
	return &UploadService{
		repo:     repositories.NewAttachmentRepository(),
		store:    configs.GetBlobStore(),
		schemas:  formschema.Default(),
		maxBytes: configs.GetEnvInt64("UPLOAD_MAX_BYTES", 10<<20),
		now:      time.Now,
	}
}

// Store dosyayı kurallara göre denetler, depoya yazar ve kaydını oluşturur.
// Kayıt oluşturulamazsa depodaki dosya geri silinir.
func (s *UploadService) Store(ctx context.Context, in UploadInput) (*models.Attachment, error) {
	if s.store == nil {
		return nil, ErrUploadStoreMissing
	}
	limit, allowed, err := s.rulesFor(in.Kind)
	if err != nil {
		return nil, err
	}
	if limit > 0 && in.Size > limit {
		metrics.Uploads.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, fmt.Errorf("%w: %d bayt (en fazla %d)", ErrUploadTooLarge, in.Size, limit)
	}

	br := bufio.NewReader(in.Body)
	head, _ := br.Peek(512)
	if len(head) == 0 {
		metrics.Uploads.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, ErrUploadEmpty
	}
	contentType := in.ContentType
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = http.DetectContentType(head)
	}
	if len(allowed) > 0 && !autosave.TypeAllowed(contentType, allowed) {
		metrics.Uploads.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, fmt.Errorf("%w: %s", ErrUploadTypeRejected, contentType)
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = in.Kind
	}
	if purpose == "" {
		purpose = "misc"
	}
	key := s.newKey(purpose, in.FileName, contentType)

	body := &limitReader{r: br, remaining: limit}
	info, err := s.store.Put(ctx, key, body, blobstore.PutOptions{
		ContentType: contentType,
		Size:        in.Size,
		Metadata:    map[string]string{"filename": in.FileName},
	})
	if err != nil {
		if errors.Is(err, ErrUploadTooLarge) {
			metrics.Uploads.WithLabelValues(metrics.ResultInvalid).Inc()
			return nil, fmt.Errorf("%w: en fazla %d bayt", ErrUploadTooLarge, limit)
		}
		metrics.Uploads.WithLabelValues(metrics.ResultError).Inc()
		configslog.Log.Error("UploadService.Store: depo hatası", zap.String("key", key), zap.Error(err))
		return nil, ErrUploadFailed
	}
	size := info.Size
	if size == 0 {
		size = body.read
	}

	att := &models.Attachment{
		StorageKey:  key,
		FileName:    cleanFileName(in.FileName),
		ContentType: contentType,
		Size:        size,
		URL:         info.URL,
		OwnerKey:    in.OwnerKey,
		Purpose:     purpose,
	}
	if err := s.repo.Create(ctx, att); err != nil {
		configslog.Log.Error("UploadService.Store: kayıt oluşturulamadı", zap.String("key", key), zap.Error(err))
		if _, delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			configslog.Log.Warn("Yetim dosya silinemedi", zap.String("key", key), zap.Error(delErr))
		}
		metrics.Uploads.WithLabelValues(metrics.ResultError).Inc()
		return nil, ErrUploadFailed
	}

	metrics.Uploads.WithLabelValues(metrics.ResultOK).Inc()
	metrics.UploadBytes.Add(float64(size))
	configslog.SLog.Infof("Dosya yüklendi: %s (%d bayt)", key, size)
	return att, nil
}

// Open depodaki dosyayı okumak için açar.
func (s *UploadService) Open(ctx context.Context, key string) (blobstore.Info, io.ReadCloser, error) {
	if s.store == nil {
		return blobstore.Info{}, nil, ErrUploadStoreMissing
	}
	info, rc, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) || errors.Is(err, blobstore.ErrInvalidKey) {
			return blobstore.Info{}, nil, ErrUploadNotFound
		}
		configslog.Log.Error("UploadService.Open: depo hatası", zap.String("key", key), zap.Error(err))
		return blobstore.Info{}, nil, err
	}
	return info, rc, nil
}

// Remove kaydı ve depodaki dosyayı siler. Depodan silme başarısız olursa
// yalnızca loglanır.
func (s *UploadService) Remove(ctx context.Context, id uint) error {
	att, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrUploadNotFound
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return err
	}
	if s.store != nil {
		if _, err := s.store.Delete(ctx, att.StorageKey); err != nil {
			configslog.Log.Warn("Depodaki dosya silinemedi", zap.String("key", att.StorageKey), zap.Error(err))
		}
	}
	return nil
}

// rulesFor formun ek kuralını genel üst sınırla birleştirir.
func (s *UploadService) rulesFor(kind string) (int64, []string, error) {
	limit := s.maxBytes
	if kind == "" {
		return limit, nil, nil
	}
	schema, ok := s.schemas.Get(kind)
	if !ok {
		return 0, nil, ErrUploadKindUnknown
	}
	if schema.Attachment == nil {
		return limit, nil, nil
	}
	if r := schema.Attachment.MaxBytes; r > 0 && (limit <= 0 || r < limit) {
		limit = r
	}
	return limit, schema.Attachment.AllowedTypes, nil
}

// newKey "amaç/yıl/ay/uuid.uzantı" biçiminde anahtar üretir.
func (s *UploadService) newKey(purpose, fileName, contentType string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == "" || len(ext) > 8 {
		ext = ""
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("%s/%s/%s%s", purpose, s.now().UTC().Format("2006/01"), uuid.NewString(), ext)
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "dosya"
	}
	return name
}

// limitReader limitten fazla bayt okunursa ErrUploadTooLarge döner.
type limitReader struct {
	r         io.Reader
	remaining int64
	read      int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.remaining > 0 && l.read > l.remaining {
		return n, ErrUploadTooLarge
	}
	return n, err
}

var _ IUploadService = (*UploadService)(nil)
