package autosave

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// Attachment forma eklenmiş bir dosyadır. Dosya tanıtıcısı ve önizleme referansı
// form örneğine aittir; değiştirildiğinde veya form kapatıldığında Release ile
// bırakılmalıdır.
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Preview     string // yerel önizleme referansı (ör. file:// yolu)

	content  io.ReaderAt
	release  func() error
	released atomic.Bool
}

// NewAttachment içeriği content'ten okunan bir ek oluşturur. release, Release
// ilk kez çağrıldığında çalışır; nil olabilir.
func NewAttachment(name, contentType string, content io.ReaderAt, size int64, preview string, release func() error) *Attachment {
	return &Attachment{
		Name:        name,
		ContentType: normalizeContentType(contentType),
		Size:        size,
		Preview:     preview,
		content:     content,
		release:     release,
	}
}

// OpenAttachment diskteki bir dosyayı açar. MIME türü önce uzantıdan, bulunamazsa
// içerikten belirlenir. Dönen ekin Release'i dosyayı kapatır.
func OpenAttachment(path string) (*Attachment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("autosave: %s bir dizin", path)
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		head := make([]byte, 512)
		n, err := f.ReadAt(head, 0)
		if err != nil && !errors.Is(err, io.EOF) {
			_ = f.Close()
			return nil, err
		}
		contentType = http.DetectContentType(head[:n])
	}

	preview := path
	if abs, err := filepath.Abs(path); err == nil {
		preview = abs
	}
	return NewAttachment(filepath.Base(path), contentType, f, st.Size(), "file://"+preview, f.Close), nil
}

// Reader içeriği baştan okuyan yeni bir reader döndürür. Her gönderim kendi
// reader'ını kullanır.
func (a *Attachment) Reader() io.Reader {
	return io.NewSectionReader(a.content, 0, a.Size)
}

// Release dosya tanıtıcısını ve önizlemeyi bırakır. Birden fazla çağrı güvenlidir.
func (a *Attachment) Release() error {
	if a == nil || !a.released.CompareAndSwap(false, true) {
		return nil
	}
	if a.release != nil {
		return a.release()
	}
	return nil
}

// Released ek bırakıldıysa true döner.
func (a *Attachment) Released() bool { return a.released.Load() }

// AttachmentRules seçim anında uygulanan ek dosya kurallarıdır.
type AttachmentRules struct {
	MaxBytes     int64
	AllowedTypes []string // "image/png" veya "image/*"
}

// Check eki kurallara göre doğrular.
func (r AttachmentRules) Check(a *Attachment) error {
	if a == nil {
		return nil
	}
	if r.MaxBytes > 0 && a.Size > r.MaxBytes {
		return fmt.Errorf("%w: %s (%d bayt, en fazla %d)", ErrAttachmentTooLarge, a.Name, a.Size, r.MaxBytes)
	}
	if len(r.AllowedTypes) > 0 && !TypeAllowed(a.ContentType, r.AllowedTypes) {
		return fmt.Errorf("%w: %s (%s)", ErrAttachmentType, a.Name, a.ContentType)
	}
	return nil
}

// TypeAllowed contentType izin listesinde mi kontrol eder. "tür/*" kalıbı desteklenir.
func TypeAllowed(contentType string, allowed []string) bool {
	ct := normalizeContentType(contentType)
	for _, pattern := range allowed {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if strings.HasPrefix(ct, prefix+"/") {
				return true
			}
			continue
		}
		if ct == pattern {
			return true
		}
	}
	return false
}

func normalizeContentType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return strings.ToLower(mt)
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
