package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"destek.link/configs"
	"destek.link/database/dbtest"
	"destek.link/models"
	"destek.link/pkg/blobstore"
	"destek.link/pkg/formschema"
	"destek.link/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func setup(t *testing.T) *blobstore.MemoryStore {
	t.Helper()
	dbtest.New(t)
	store := blobstore.NewMemory("/uploads")
	prev := configs.GetBlobStore()
	configs.SetBlobStore(store)
	t.Cleanup(func() { configs.SetBlobStore(prev) })
	return store
}

func png(name string) *UploadInput {
	return &UploadInput{FileName: name, Body: bytes.NewReader(pngHeader), Size: int64(len(pngHeader))}
}

func TestUploadService_Store(t *testing.T) {
	store := setup(t)
	svc := NewUploadService()
	ctx := context.Background()

	in := *png("ekran.png")
	in.Kind = "ticket"
	in.OwnerKey = "s:abc"
	att, err := svc.Store(ctx, in)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(att.StorageKey, "ticket/"), att.StorageKey)
	assert.True(t, strings.HasSuffix(att.StorageKey, ".png"))
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, "/uploads/"+att.StorageKey, att.URL)
	assert.Equal(t, int64(len(pngHeader)), att.Size)
	assert.Equal(t, 1, store.Len())

	_, rc, err := svc.Open(ctx, att.StorageKey)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	require.NoError(t, svc.Remove(ctx, att.ID))
	assert.Equal(t, 0, store.Len())
	assert.ErrorIs(t, svc.Remove(ctx, att.ID), ErrUploadNotFound)
	_, _, err = svc.Open(ctx, att.StorageKey)
	assert.ErrorIs(t, err, ErrUploadNotFound)
}

func TestUploadService_Rules(t *testing.T) {
	store := setup(t)
	svc := NewUploadService()
	ctx := context.Background()

	_, err := svc.Store(ctx, UploadInput{Kind: "ticket", FileName: "not.txt", Body: strings.NewReader("düz metin")})
	assert.ErrorIs(t, err, ErrUploadTypeRejected)

	_, err = svc.Store(ctx, UploadInput{Kind: "ticket", FileName: "büyük.png", Size: 6 << 20, Body: bytes.NewReader(pngHeader)})
	assert.ErrorIs(t, err, ErrUploadTooLarge)

	// Boyut bildirilmese de akış sınırı uygulanır.
	big := append(bytes.Clone(pngHeader), make([]byte, 6<<20)...)
	_, err = svc.Store(ctx, UploadInput{Kind: "ticket", FileName: "büyük.png", Body: bytes.NewReader(big)})
	assert.ErrorIs(t, err, ErrUploadTooLarge)

	_, err = svc.Store(ctx, UploadInput{Kind: "ticket", FileName: "boş.png", Body: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrUploadEmpty)

	_, err = svc.Store(ctx, UploadInput{Kind: "yok", FileName: "a.png", Body: bytes.NewReader(pngHeader)})
	assert.ErrorIs(t, err, ErrUploadKindUnknown)

	// Türsüz yüklemede ek kuralı yoktur.
	_, err = svc.Store(ctx, UploadInput{FileName: "not.txt", Body: strings.NewReader("düz metin")})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestDraftService_SaveAndOverwrite(t *testing.T) {
	setup(t)
	svc := NewDraftService()
	ctx := context.Background()
	before := testutil.ToFloat64(metrics.DraftsSaved.WithLabelValues("contact"))

	d, err := svc.SaveDraft(ctx, DraftInput{
		OwnerKey: "s:1", Kind: "contact", InstanceID: "i-1",
		Fields: map[string]any{"name": "Ayşe", "services": []any{"web"}, "bilinmeyen": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Revision)

	d, err = svc.SaveDraft(ctx, DraftInput{
		OwnerKey: "s:1", Kind: "contact", InstanceID: "i-1",
		Fields: map[string]any{"name": "Ayşe Yılmaz", "message": "Merhaba"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, d.Revision)

	got, err := svc.GetDraft(ctx, "s:1", "contact")
	require.NoError(t, err)
	assert.Equal(t, "Ayşe Yılmaz", got.Fields["name"])
	assert.Equal(t, "Merhaba", got.Fields["message"])
	assert.NotContains(t, got.Fields, "services")
	assert.NotContains(t, got.Fields, "bilinmeyen")
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DraftsSaved.WithLabelValues("contact"))-before)

	var count int64
	require.NoError(t, configs.GetDB().Model(&models.Draft{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDraftService_Rejections(t *testing.T) {
	setup(t)
	svc := NewDraftService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "contact", Fields: map[string]any{"name": "  ", "services": []any{}}})
	assert.ErrorIs(t, err, ErrDraftEmpty)

	// Sadece geçici alan dolu ise taslak boştur.
	_, err = svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", Fields: map[string]any{"source": "tui"}})
	assert.ErrorIs(t, err, ErrDraftEmpty)

	_, err = svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "yok", Fields: map[string]any{"a": "b"}})
	assert.ErrorIs(t, err, ErrDraftKindUnknown)

	_, err = svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "contact", Fields: map[string]any{"services": "web"}})
	assert.ErrorIs(t, err, ErrDraftInvalid)

	_, err = svc.GetDraft(ctx, "s:1", "contact")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.ErrorIs(t, svc.DiscardDraft(ctx, "s:1", "contact"), ErrDraftNotFound)
}

func TestDraftService_AttachmentReplaced(t *testing.T) {
	store := setup(t)
	svc := NewDraftService()
	ctx := context.Background()

	d, err := svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-1", Attachment: png("a.png")})
	require.NoError(t, err)
	require.NotNil(t, d.Attachment)
	assert.Equal(t, "screenshot", d.AttachmentField)
	assert.True(t, strings.HasPrefix(d.Attachment.StorageKey, "draft/ticket/"))
	first := d.Attachment.StorageKey

	_, err = svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-1", Fields: map[string]any{"subject": "Hata"}, Attachment: png("b.png")})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
	_, _, err = store.Get(ctx, first)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	got, err := svc.GetDraft(ctx, "s:1", "ticket")
	require.NoError(t, err)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "b.png", got.Attachment.FileName)

	require.NoError(t, svc.DiscardDraft(ctx, "s:1", "ticket"))
	assert.Equal(t, 0, store.Len())
}

func TestDraftService_AttachmentKeptUntilDetached(t *testing.T) {
	store := setup(t)
	svc := NewDraftService()
	ctx := context.Background()

	_, err := svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-1", Fields: map[string]any{"subject": "Hata"}, Attachment: png("ekran.png")})
	require.NoError(t, err)

	// Geri yüklenen taslaktan devam eden yeni örnek ek göndermez.
	d, err := svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-2", Fields: map[string]any{"subject": "Hata!"}})
	require.NoError(t, err)
	require.NotNil(t, d.Attachment)
	assert.Equal(t, "ekran.png", d.Attachment.FileName)
	assert.Equal(t, 1, store.Len())

	got, err := svc.GetDraft(ctx, "s:1", "ticket")
	require.NoError(t, err)
	require.NotNil(t, got.Attachment)
	assert.Equal(t, "Hata!", got.Fields["subject"])
	assert.Equal(t, "screenshot", got.AttachmentField)
	_, _, err = store.Get(ctx, got.Attachment.StorageKey)
	require.NoError(t, err)

	// Ek alanı boş gönderilirse ek kaldırılır.
	_, err = svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-2", Fields: map[string]any{"subject": "Hata!", "screenshot": ""}})
	require.NoError(t, err)
	got, err = svc.GetDraft(ctx, "s:1", "ticket")
	require.NoError(t, err)
	assert.Nil(t, got.Attachment)
	assert.NotContains(t, got.Fields, "screenshot")
	assert.Equal(t, 0, store.Len())
}

func TestDraftService_ConcurrentSavesShareOneRow(t *testing.T) {
	setup(t)
	svc := NewDraftService()
	ctx := context.Background()

	const writers = 8
	errs := make(chan error, writers)
	for i := range writers {
		go func() {
			_, err := svc.SaveDraft(ctx, DraftInput{
				OwnerKey: "s:1", Kind: "contact", InstanceID: "i-1",
				Fields: map[string]any{"name": strings.Repeat("a", i+1)},
			})
			errs <- err
		}()
	}
	for range writers {
		require.NoError(t, <-errs)
	}

	var rows []models.Draft
	require.NoError(t, configs.GetDB().Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, writers, rows[0].Revision)
}

func TestDraftService_PurgeStale(t *testing.T) {
	store := setup(t)
	svc := NewDraftService().(*DraftService)
	ctx := context.Background()

	svc.now = func() time.Time { return time.Now().Add(-40 * 24 * time.Hour) }
	_, err := svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:eski", Kind: "ticket", Fields: map[string]any{"subject": "eski"}, Attachment: png("a.png")})
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.SaveDraft(ctx, DraftInput{OwnerKey: "s:yeni", Kind: "ticket", Fields: map[string]any{"subject": "yeni"}})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.DraftsPurged)
	n, err := svc.PurgeStale(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DraftsPurged)-before)
	assert.Equal(t, 0, store.Len())

	_, err = svc.GetDraft(ctx, "s:eski", "ticket")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	_, err = svc.GetDraft(ctx, "s:yeni", "ticket")
	assert.NoError(t, err)
}

func TestRunDraftJanitor_StopsOnCancel(t *testing.T) {
	setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunDraftJanitor(ctx, NewDraftService(), 10*time.Millisecond, time.Hour) }()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("temizleyici durmadı")
	}
}

func contactFields() map[string]any {
	return map[string]any{
		"name":     "Ayşe Yılmaz",
		"email":    "ayse@example.com",
		"services": []any{"web", "seo"},
		"message":  "Teklif almak istiyorum.",
	}
}

func TestSubmissionService_ClosesDraft(t *testing.T) {
	store := setup(t)
	drafts := NewDraftService()
	subs := NewSubmissionService()
	ctx := context.Background()

	_, err := drafts.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-1", Fields: map[string]any{"subject": "Hata"}, Attachment: png("a.png")})
	require.NoError(t, err)

	sub, err := subs.Submit(ctx, SubmitInput{
		OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-1",
		Fields: map[string]any{"subject": "Hata", "problem": "Giriş yapamıyorum", "source": "tui"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ReferenceNo)
	assert.Equal(t, models.SubmissionStatusNew, sub.Status)
	assert.Equal(t, "tui", sub.Fields["source"], "geçici alan gönderimle saklanmalı")
	assert.Equal(t, 0, store.Len(), "kapatılan taslağın eki silinmeli")

	_, err = drafts.GetDraft(ctx, "s:1", "ticket")
	assert.ErrorIs(t, err, ErrDraftNotFound)

	// Aynı örnekten gelen geç taslak yok sayılır.
	_, err = drafts.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-1", Fields: map[string]any{"subject": "geç"}})
	assert.ErrorIs(t, err, ErrDraftClosed)

	// Yeni bir form örneği taslağı yeniden açar.
	_, err = drafts.SaveDraft(ctx, DraftInput{OwnerKey: "s:1", Kind: "ticket", InstanceID: "i-2", Fields: map[string]any{"subject": "yeni"}})
	require.NoError(t, err)
	got, err := drafts.GetDraft(ctx, "s:1", "ticket")
	require.NoError(t, err)
	assert.Equal(t, "yeni", got.Fields["subject"])
}

func TestSubmissionService_Idempotent(t *testing.T) {
	setup(t)
	subs := NewSubmissionService()
	ctx := context.Background()

	first, err := subs.Submit(ctx, SubmitInput{OwnerKey: "s:1", Kind: "contact", InstanceID: "i-9", Fields: contactFields()})
	require.NoError(t, err)
	second, err := subs.Submit(ctx, SubmitInput{OwnerKey: "s:1", Kind: "contact", InstanceID: "i-9", Fields: contactFields()})
	require.NoError(t, err)
	assert.Equal(t, first.ReferenceNo, second.ReferenceNo)

	got, err := subs.GetByReference(ctx, first.ReferenceNo)
	require.NoError(t, err)
	assert.Equal(t, []any{"web", "seo"}, got.Fields["services"])

	_, err = subs.GetByReference(ctx, "yok")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)

	// Örnek kimliği verilmezse üretilir.
	third, err := subs.Submit(ctx, SubmitInput{OwnerKey: "s:1", Kind: "contact", Fields: contactFields()})
	require.NoError(t, err)
	assert.NotEqual(t, first.ReferenceNo, third.ReferenceNo)
	assert.NotEmpty(t, third.InstanceID)
}

func TestSubmissionService_InstanceScopedToOwner(t *testing.T) {
	setup(t)
	subs := NewSubmissionService()
	ctx := context.Background()

	mine, err := subs.Submit(ctx, SubmitInput{OwnerKey: "s:1", Kind: "contact", InstanceID: "i-ortak", Fields: contactFields()})
	require.NoError(t, err)

	other := contactFields()
	other["name"] = "Mehmet Demir"
	theirs, err := subs.Submit(ctx, SubmitInput{OwnerKey: "s:2", Kind: "contact", InstanceID: "i-ortak", Fields: other})
	require.NoError(t, err)
	assert.NotEqual(t, mine.ReferenceNo, theirs.ReferenceNo)
	assert.Equal(t, "s:2", theirs.OwnerKey)

	got, err := subs.GetByReference(ctx, theirs.ReferenceNo)
	require.NoError(t, err)
	assert.Equal(t, "Mehmet Demir", got.Fields["name"])

	var count int64
	require.NoError(t, configs.GetDB().Model(&models.Submission{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestSubmissionService_Validation(t *testing.T) {
	setup(t)
	subs := NewSubmissionService()
	before := testutil.ToFloat64(metrics.Submissions.WithLabelValues("contact", metrics.ResultInvalid))

	_, err := subs.Submit(context.Background(), SubmitInput{
		OwnerKey: "s:1", Kind: "contact",
		Fields: map[string]any{"email": "Ayşe <ayse@example.com>", "services": []any{"uzay"}},
	})
	var verr *formschema.ValidationError
	require.True(t, errors.As(err, &verr), "%v", err)
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "services")
	assert.Contains(t, verr.Fields, "message")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Submissions.WithLabelValues("contact", metrics.ResultInvalid))-before)

	_, err = subs.Submit(context.Background(), SubmitInput{OwnerKey: "s:1", Kind: "yok"})
	assert.ErrorIs(t, err, ErrSubmissionKindUnknown)
}
