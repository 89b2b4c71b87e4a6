package autosave

import "errors"

var (
	// ErrNotEditing gönderim başlatılmak istendiğinde form Editing durumunda değilse döner.
	ErrNotEditing = errors.New("autosave: form düzenleme durumunda değil")
	// ErrNotFailed Reopen sadece Failed durumundan çağrılabilir.
	ErrNotFailed = errors.New("autosave: form başarısız gönderim durumunda değil")
	// ErrAttachmentTooLarge ek dosya izin verilen boyutu aşıyor.
	ErrAttachmentTooLarge = errors.New("autosave: ek dosya çok büyük")
	// ErrAttachmentType ek dosyanın türüne izin verilmiyor.
	ErrAttachmentType = errors.New("autosave: ek dosya türüne izin verilmiyor")
	// ErrNoSubmitter formda gönderim collaborator'ı tanımlı değil.
	ErrNoSubmitter = errors.New("autosave: gönderim servisi tanımlı değil")
	// ErrNoUploader formda ek dosya var ama yükleme collaborator'ı yok.
	ErrNoUploader = errors.New("autosave: yükleme servisi tanımlı değil")
	// ErrUpload ek dosya gönderim öncesi yüklenemedi.
	ErrUpload = errors.New("autosave: ek dosya yüklenemedi")
	// ErrClosed kapatılmış form örneği üzerinde işlem yapılamaz.
	ErrClosed = errors.New("autosave: form kapatıldı")
)
