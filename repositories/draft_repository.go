package repositories

import (
	"context"
	"errors"
	"time"

	"destek.link/configs"
	"destek.link/configs/configslog"
	"destek.link/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDraftClosed taslak gönderilmiş bir form örneğinden geldiğinde döner.
var ErrDraftClosed = errors.New("taslak bu form örneği için kapatılmış")

// IDraftRepository taslak veritabanı işlemleri için arayüz.
type IDraftRepository interface {
	FindByOwnerAndKind(ctx context.Context, ownerKey, kind string) (*models.Draft, error)
	Upsert(ctx context.Context, draft *models.Draft, keepAttachment bool) (previousAttachmentID *uint, err error)
	Close(ctx context.Context, ownerKey, kind, instanceID string) (previousAttachmentID *uint, err error)
	Delete(ctx context.Context, ownerKey, kind string) (*models.Draft, error)
	DeleteStaleBefore(ctx context.Context, cutoff time.Time) ([]models.Draft, error)
}

// DraftRepository IDraftRepository arayüzünü uygular.
type DraftRepository struct {
	db *gorm.DB
}

func NewDraftRepository() IDraftRepository {
	return &DraftRepository{db: configs.GetDB()}
}

// Transaction'lı Repository için yardımcı constructor
func NewDraftRepositoryTx(tx *gorm.DB) IDraftRepository {
	return &DraftRepository{db: tx}
}

func (r *DraftRepository) getDB(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// FindByOwnerAndKind sahibin ilgili form türündeki taslağını eki ile birlikte getirir.
func (r *DraftRepository) FindByOwnerAndKind(ctx context.Context, ownerKey, kind string) (*models.Draft, error) {
	if ownerKey == "" || kind == "" {
		return nil, errors.New("geçersiz taslak anahtarı")
	}
	var draft models.Draft
	err := r.getDB(ctx).Preload("Attachment").
		Where("owner_key = ? AND form_kind = ?", ownerKey, kind).
		First(&draft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		configslog.Log.Error("DraftRepository.FindByOwnerAndKind: DB error", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	return &draft, nil
}

// Upsert sahibin taslağını üzerine yazar, yoksa oluşturur. Yazma tek bir
// INSERT ... ON CONFLICT ile yapılır; aynı sahip ve tür için eşzamanlı ilk
// kayıtlar da tek satırda birleşir. keepAttachment true ise ve taslakta yeni ek
// yoksa kayıtlı ek korunur. Eski ek değiştiyse ID'si döner. Satır bu form
// örneği için kapatılmışsa ErrDraftClosed döner.
func (r *DraftRepository) Upsert(ctx context.Context, draft *models.Draft, keepAttachment bool) (*uint, error) {
	if draft == nil || draft.OwnerKey == "" || draft.FormKind == "" {
		return nil, errors.New("geçersiz taslak")
	}
	keep := keepAttachment && draft.AttachmentID == nil
	var previous *uint
	err := r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockDraft(tx, draft.OwnerKey, draft.FormKind)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.IsClosedFor(draft.InstanceID) {
				return ErrDraftClosed
			}
			if !keep && existing.AttachmentID != nil && !sameID(existing.AttachmentID, draft.AttachmentID) {
				previous = existing.AttachmentID
			}
		}

		columns := []string{"instance_id", "fields", "saved_at", "closed_at", "updated_at"}
		if !keep {
			columns = append(columns, "attachment_id", "attachment_field")
		}
		updates := append(clause.AssignmentColumns(columns), clause.Assignment{
			Column: clause.Column{Name: "revision"},
			Value:  gorm.Expr("drafts.revision + 1"),
		})

		row := *draft
		row.ID = 0
		row.Revision = 1
		row.ClosedAt = nil
		result := tx.Clauses(clause.OnConflict{
			Columns:   draftKeyColumns,
			DoUpdates: updates,
			// Kilitlenemeyen (yeni eklenmiş) satır başka bir örnek tarafından kapatılmış olabilir.
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "drafts.closed_at IS NULL OR drafts.instance_id <> ?", Vars: []any{draft.InstanceID}},
			}},
		}).Create(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDraftClosed
		}
		return tx.Preload("Attachment").
			Where("owner_key = ? AND form_kind = ?", draft.OwnerKey, draft.FormKind).
			First(draft).Error
	})
	if err != nil {
		if !errors.Is(err, ErrDraftClosed) {
			configslog.Log.Error("DraftRepository.Upsert: DB error", zap.String("kind", draft.FormKind), zap.Error(err))
		}
		return nil, err
	}
	return previous, nil
}

// Close form örneğinin taslağını gönderim sonrası kapatır: alanlar temizlenir ve
// aynı örnekten gelecek geç kayıtlar yok sayılır. Taslak hiç kaydedilmemişse
// kapalı bir satır oluşturulur. Taslağın eki varsa ID'si döner.
func (r *DraftRepository) Close(ctx context.Context, ownerKey, kind, instanceID string) (*uint, error) {
	now := time.Now().UTC()
	var previous *uint
	err := r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := lockDraft(tx, ownerKey, kind)
		if err != nil {
			return err
		}
		if existing != nil {
			previous = existing.AttachmentID
		}
		return tx.Clauses(clause.OnConflict{
			Columns: draftKeyColumns,
			DoUpdates: clause.AssignmentColumns([]string{
				"instance_id", "fields", "attachment_id", "attachment_field", "closed_at", "updated_at",
			}),
		}).Create(&models.Draft{
			OwnerKey:   ownerKey,
			FormKind:   kind,
			InstanceID: instanceID,
			Fields:     map[string]any{},
			SavedAt:    now,
			ClosedAt:   &now,
		}).Error
	})
	if err != nil {
		configslog.Log.Error("DraftRepository.Close: DB error", zap.String("kind", kind), zap.Error(err))
		return nil, err
	}
	return previous, nil
}

var draftKeyColumns = []clause.Column{{Name: "owner_key"}, {Name: "form_kind"}}

// lockDraft mevcut satırı transaction sonuna kadar kilitler. SQLite satır
// kilidi desteklemez; orada yazma kilidi zaten tüm transaction'ı sıralar.
func lockDraft(tx *gorm.DB, ownerKey, kind string) (*models.Draft, error) {
	var existing models.Draft
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_key = ? AND form_kind = ?", ownerKey, kind).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// Delete taslağı kalıcı olarak siler ve silinen kaydı döndürür.
func (r *DraftRepository) Delete(ctx context.Context, ownerKey, kind string) (*models.Draft, error) {
	var deleted *models.Draft
	err := r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Draft
		if err := tx.Where("owner_key = ? AND form_kind = ?", ownerKey, kind).First(&existing).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&existing).Error; err != nil {
			return err
		}
		deleted = &existing
		return nil
	})
	if err != nil {
		return nil, translateNotFound(err)
	}
	return deleted, nil
}

// DeleteStaleBefore cutoff'tan önce kaydedilmiş taslakları siler.
func (r *DraftRepository) DeleteStaleBefore(ctx context.Context, cutoff time.Time) ([]models.Draft, error) {
	var stale []models.Draft
	err := r.getDB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("saved_at < ?", cutoff).Find(&stale).Error; err != nil {
			return err
		}
		if len(stale) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(stale))
		for _, d := range stale {
			ids = append(ids, d.ID)
		}
		return tx.Unscoped().Where("id IN ?", ids).Delete(&models.Draft{}).Error
	})
	if err != nil {
		configslog.Log.Error("DraftRepository.DeleteStaleBefore: DB error", zap.Time("cutoff", cutoff), zap.Error(err))
		return nil, err
	}
	return stale, nil
}

func sameID(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

var _ IDraftRepository = (*DraftRepository)(nil)
