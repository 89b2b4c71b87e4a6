package autosave

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitRequest kesin gönderim isteğidir: doğrulanmış tüm snapshot.
type SubmitRequest struct {
	Kind       string
	InstanceID string
	Values     map[string]any
}

// Receipt başarılı gönderimde sunucunun verdiği kimliği taşır.
type Receipt struct {
	ID string
}

// Submitter kesin gönderim uç noktası.
type Submitter interface {
	SubmitForm(ctx context.Context, req SubmitRequest) (Receipt, error)
}

// Uploader tek bir dosyayı yükleyip kalıcı bir referans (URL veya kimlik) döndürür.
type Uploader interface {
	Upload(ctx context.Context, a *Attachment) (string, error)
}

// Collaborators formun kullandığı ağ uç noktalarıdır. Drafts ve Beacon nil ise
// taslaklar gönderilmez; Submit nil ise Submit ErrNoSubmitter döner.
type Collaborators struct {
	Drafts DraftSender
	Submit Submitter
	Upload Uploader
	Beacon Beacon
}

type formConfig struct {
	quiet       time.Duration
	saveTimeout time.Duration
	log         *zap.Logger
	transient   []string
	initial     []Field
	lifecycle   Lifecycle
	validate    func(values map[string]any) error
	rules       AttachmentRules
}

// Option Form için ayar fonksiyonu.
type Option func(*formConfig)

// WithQuietPeriod sessizlik süresini değiştirir (varsayılan 2000ms).
func WithQuietPeriod(d time.Duration) Option { return func(c *formConfig) { c.quiet = d } }

func WithSaveTimeout(d time.Duration) Option { return func(c *formConfig) { c.saveTimeout = d } }

func WithLogger(l *zap.Logger) Option { return func(c *formConfig) { c.log = l } }

// WithTransient taslağa dahil edilmeyecek, sadece arayüze ait alanları belirtir.
func WithTransient(names ...string) Option {
	return func(c *formConfig) { c.transient = append(c.transient, names...) }
}

// WithInitial formu verilen alanlarla açar (kayıtlı taslak veya düzenlenen kayıt).
// Başlangıç değerleri zamanlayıcıyı tetiklemez.
func WithInitial(fields ...Field) Option {
	return func(c *formConfig) { c.initial = append(c.initial, fields...) }
}

func WithLifecycle(l Lifecycle) Option { return func(c *formConfig) { c.lifecycle = l } }

// WithValidator kesin gönderimden önce çalışan doğrulamayı ayarlar. Taslak yolu
// doğrulama yapmaz.
func WithValidator(fn func(values map[string]any) error) Option {
	return func(c *formConfig) { c.validate = fn }
}

func WithAttachmentRules(r AttachmentRules) Option { return func(c *formConfig) { c.rules = r } }

// Form tek bir form örneğidir. FieldStore, Guard, IdleScheduler, Persister ve
// UnloadFlush'ın sahibidir; hepsi aynı Guard'ı okur.
type Form struct {
	kind   string
	id     string
	collab Collaborators
	cfg    formConfig
	log    *zap.Logger

	guard  *Guard
	store  *FieldStore
	sched  *IdleScheduler
	drafts *Persister
	flush  *UnloadFlush

	stopLifecycle func()
	closed        atomic.Bool
}

// New Editing durumunda yeni bir form örneği oluşturur.
func New(kind string, collab Collaborators, opts ...Option) *Form {
	cfg := formConfig{quiet: DefaultQuietPeriod, saveTimeout: DefaultSaveTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}

	f := &Form{
		kind:   kind,
		id:     uuid.NewString(),
		collab: collab,
		cfg:    cfg,
	}
	f.log = cfg.log.With(zap.String("form", kind), zap.String("instance_id", f.id))

	f.guard = NewGuard(func() { f.sched.Cancel() })
	f.sched = NewIdleScheduler(cfg.quiet, f.guard, f.saveDraft)
	f.store = NewFieldStore(NewSnapshot(cfg.initial...), f.sched.Touch)
	f.drafts = NewPersister(kind, f.id, collab.Drafts, f.guard, cfg.saveTimeout, f.log)
	f.flush = NewUnloadFlush(kind, f.id, f.guard, f.Draft, collab.Beacon, f.log)

	if cfg.lifecycle != nil {
		f.stopLifecycle = cfg.lifecycle.OnDiscard(f.Close)
	}
	return f
}

func (f *Form) Kind() string { return f.kind }

// InstanceID her taslak ve gönderimle birlikte giden örnek kimliği.
func (f *Form) InstanceID() string { return f.id }

func (f *Form) State() State { return f.guard.State() }

// Saving arka planda bir taslak kaydı sürüyorsa true döner.
func (f *Form) Saving() bool { return f.drafts.Saving() }

func (f *Form) Snapshot() Snapshot { return f.store.Snapshot() }

// Draft o anki snapshot'tan taslak kaydını üretir.
func (f *Form) Draft() DraftRecord { return f.store.Snapshot().Draft(f.cfg.transient...) }

// SetField alanı günceller ve zamanlayıcıyı sıfırlar. Dosya değerleri ek
// kurallarına takılırsa bırakılır ve snapshot değişmez; hata almak için Attach
// kullanılmalıdır. Kapatılmış formda bir şey yapmaz.
func (f *Form) SetField(name string, v Value) Snapshot {
	next, err := f.set(name, v)
	if err != nil {
		f.log.Info("Ek dosya reddedildi", zap.String("field", name), zap.Error(err))
	}
	return next
}

// Attach eki seçim anında doğrular. Reddedilen ek bırakılır ve forma girmez.
func (f *Form) Attach(field string, a *Attachment) error {
	if a == nil {
		return f.Detach(field)
	}
	_, err := f.set(field, File(a))
	return err
}

// Detach alandaki eki kaldırır ve bırakır.
func (f *Form) Detach(field string) error {
	_, err := f.set(field, File(nil))
	return err
}

func (f *Form) set(name string, v Value) (Snapshot, error) {
	if f.closed.Load() {
		_ = v.File().Release()
		return f.store.Snapshot(), ErrClosed
	}
	if a := v.File(); a != nil {
		if err := f.cfg.rules.Check(a); err != nil {
			_ = a.Release()
			return f.store.Snapshot(), err
		}
	}
	prev, next := f.store.exchange(name, v)
	if old := prev.File(); old != nil && old != v.File() {
		if err := old.Release(); err != nil {
			f.log.Warn("Eski ek bırakılamadı", zap.String("field", name), zap.Error(err))
		}
	}
	return next, nil
}

// Submit kesin gönderimi yapar. Sıra: doğrulama, Guard (senkron, zamanlayıcıyı
// iptal eder), ek yükleme, gönderim, sonuç. Doğrulama hatasında Guard devreye
// girmez ve form Editing kalır.
func (f *Form) Submit(ctx context.Context) (Receipt, error) {
	if f.collab.Submit == nil {
		return Receipt{}, ErrNoSubmitter
	}
	if f.closed.Load() {
		return Receipt{}, ErrClosed
	}
	if f.cfg.validate != nil {
		if err := f.cfg.validate(f.store.Snapshot().Values()); err != nil {
			return Receipt{}, err
		}
	}
	if err := f.guard.BeginSubmit(); err != nil {
		return Receipt{}, err
	}

	if err := f.uploadAttachments(ctx); err != nil {
		f.guard.Settle(false)
		f.log.Warn("Gönderim öncesi ek yüklenemedi", zap.Error(err))
		return Receipt{}, err
	}

	receipt, err := f.collab.Submit.SubmitForm(ctx, SubmitRequest{
		Kind:       f.kind,
		InstanceID: f.id,
		Values:     f.store.Snapshot().Values(),
	})
	state := f.guard.Settle(err == nil)
	if err != nil {
		f.log.Warn("Form gönderilemedi", zap.String("state", state.String()), zap.Error(err))
		return Receipt{}, err
	}
	f.log.Info("Form gönderildi", zap.String("id", receipt.ID))
	return receipt, nil
}

// uploadAttachments dosya alanlarını yükleyip kalıcı referansı metin değeri
// olarak snapshot'a yazar. Guard devrede olduğu için bu yazımlar taslak tetiklemez.
func (f *Form) uploadAttachments(ctx context.Context) error {
	for _, fld := range f.store.Snapshot().Fields() {
		a := fld.Value.File()
		if a == nil {
			continue
		}
		if f.collab.Upload == nil {
			return ErrNoUploader
		}
		ref, err := f.collab.Upload.Upload(ctx, a)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrUpload, a.Name, err)
		}
		if _, err := f.set(fld.Name, Text(ref)); err != nil {
			return err
		}
	}
	return nil
}

// Reopen başarısız bir gönderimden sonra düzenlemeyi bilinçli olarak yeniden açar
// ve bekleyen değişiklikler için zamanlayıcıyı başlatır.
func (f *Form) Reopen() error {
	if f.closed.Load() {
		return ErrClosed
	}
	if err := f.guard.Reopen(); err != nil {
		return err
	}
	f.sched.Touch()
	return nil
}

// Close form örneğini atar: bekleyen zamanlayıcıyı iptal eder, form hala Editing
// ve taslak boş değilse kapanış beacon'ını gönderir, ekleri bırakır. Birden fazla
// çağrı güvenlidir.
func (f *Form) Close() {
	if !f.closed.CompareAndSwap(false, true) {
		return
	}
	if f.stopLifecycle != nil {
		f.stopLifecycle()
	}
	f.sched.Cancel()
	if f.flush.Fire() {
		f.log.Debug("Kapanış taslağı gönderildi")
	}
	for _, fld := range f.store.Snapshot().Fields() {
		if err := fld.Value.File().Release(); err != nil {
			f.log.Warn("Ek bırakılamadı", zap.String("field", fld.Name), zap.Error(err))
		}
	}
}

func (f *Form) saveDraft() {
	if f.closed.Load() {
		return
	}
	f.drafts.Save(f.Draft())
}

// Transient taslağa dahil edilmeyen alanları döndürür.
func (f *Form) Transient() []string { return slices.Clone(f.cfg.transient) }
