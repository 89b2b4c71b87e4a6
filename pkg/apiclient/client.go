// Package apiclient destek.link HTTP API'sinin Go istemcisidir. Client,
// autosave.Form'un ağ uç noktalarını (taslak, beacon, gönderim, yükleme) uygular.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"destek.link/pkg/autosave"

	"go.uber.org/zap"
)

// ErrNoDraft sunucuda açık taslak yok.
var ErrNoDraft = errors.New("apiclient: taslak bulunamadı")

// StatusError beklenmeyen HTTP durum kodu.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("apiclient: HTTP %d", e.Code)
	}
	return fmt.Sprintf("apiclient: HTTP %d: %s", e.Code, e.Message)
}

// SubmitError sunucunun alan bazlı doğrulama hatası (422).
type SubmitError struct {
	Fields map[string]string
}

func (e *SubmitError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+e.Fields[n])
	}
	return "gönderim reddedildi: " + strings.Join(parts, "; ")
}

// Client tek bir sunucuya bağlıdır. Oturum çerezi jar'da tutulur; taslaklar
// bu oturuma aittir.
type Client struct {
	base          *url.URL
	http          *http.Client
	log           *zap.Logger
	beaconTimeout time.Duration

	beacons sync.WaitGroup
}

// Option Client ayarı.
type Option func(*Client)

// WithHTTPClient kullanılacak http.Client'ı verir. Jar'ı yoksa eklenir.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithBeaconTimeout beacon isteklerinin süre sınırı (varsayılan 5 sn).
func WithBeaconTimeout(d time.Duration) Option { return func(c *Client) { c.beaconTimeout = d } }

// New baseURL'e (ör. "https://destek.link") bağlanan istemci oluşturur.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: geçersiz adres: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient: geçersiz adres %q", baseURL)
	}
	c := &Client{base: u, beaconTimeout: 5 * time.Second}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.http.Jar == nil {
		jar, _ := cookiejar.New(nil)
		c.http.Jar = jar
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// SaveDraft taslağı kaydeder. Ek varsa multipart, yoksa JSON gönderilir.
// 200, 202 (form örneği gönderilmiş) ve 204 (boş) başarı sayılır.
func (c *Client) SaveDraft(ctx context.Context, req autosave.DraftRequest) error {
	body, contentType, err := encodeDraft(req)
	if err != nil {
		return err
	}
	resp, err := c.send(ctx, http.MethodPut, c.url("/api/drafts/"+url.PathEscape(req.Kind), nil), contentType, body)
	if err != nil {
		return err
	}
	defer drain(resp)
	switch resp.StatusCode {
	case http.StatusOK, http.StatusAccepted, http.StatusNoContent:
		return nil
	}
	return statusError(resp)
}

// SendBeacon taslağı beklemeden gönderir. Gövde dönmeden önce hazırlanır;
// form ekleri hemen ardından bırakabilir.
func (c *Client) SendBeacon(req autosave.DraftRequest) {
	body, contentType, err := encodeDraft(req)
	if err != nil {
		c.log.Warn("Beacon hazırlanamadı", zap.String("kind", req.Kind), zap.Error(err))
		return
	}
	target := c.url("/api/drafts/"+url.PathEscape(req.Kind), nil)
	c.beacons.Add(1)
	go func() {
		defer c.beacons.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.beaconTimeout)
		defer cancel()
		resp, err := c.send(ctx, http.MethodPost, target, contentType, body)
		if err != nil {
			c.log.Debug("Beacon gönderilemedi", zap.String("kind", req.Kind), zap.Error(err))
			return
		}
		drain(resp)
	}()
}

// Drain bekleyen beacon'ların bitmesini en fazla timeout kadar bekler. Hepsi
// bittiyse true döner.
func (c *Client) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		c.beacons.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

type submitResponse struct {
	Success bool              `json:"success"`
	ID      string            `json:"id"`
	Errors  map[string]string `json:"errors"`
	Error   string            `json:"error"`
}

// SubmitForm kesin gönderimi yapar. 422 yanıtı *SubmitError olarak döner.
func (c *Client) SubmitForm(ctx context.Context, req autosave.SubmitRequest) (autosave.Receipt, error) {
	payload, err := json.Marshal(map[string]any{"instance_id": req.InstanceID, "fields": req.Values})
	if err != nil {
		return autosave.Receipt{}, err
	}
	resp, err := c.send(ctx, http.MethodPost, c.url("/api/forms/"+url.PathEscape(req.Kind)+"/submissions", nil), "application/json", payload)
	if err != nil {
		return autosave.Receipt{}, err
	}
	defer drain(resp)

	var out submitResponse
	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusUnprocessableEntity {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return autosave.Receipt{}, fmt.Errorf("apiclient: yanıt okunamadı: %w", err)
		}
	}
	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return autosave.Receipt{}, &SubmitError{Fields: out.Errors}
	case resp.StatusCode/100 == 2 && out.Success:
		return autosave.Receipt{ID: out.ID}, nil
	}
	return autosave.Receipt{}, statusError(resp)
}

// Uploader kind formunun ek kurallarıyla yükleme yapan autosave.Uploader döndürür.
func (c *Client) Uploader(kind string) autosave.Uploader {
	return uploader{c: c, kind: kind}
}

type uploader struct {
	c    *Client
	kind string
}

func (u uploader) Upload(ctx context.Context, a *autosave.Attachment) (string, error) {
	return u.c.Upload(ctx, u.kind, a)
}

type uploadResponse struct {
	ID  uint   `json:"id"`
	URL string `json:"url"`
}

// Upload eki /api/uploads'a yükler ve kalıcı adresini döndürür.
func (c *Client) Upload(ctx context.Context, kind string, a *autosave.Attachment) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := writeFilePart(w, "file", a); err != nil {
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	var q url.Values
	if kind != "" {
		q = url.Values{"kind": {kind}}
	}
	resp, err := c.send(ctx, http.MethodPost, c.url("/api/uploads", q), w.FormDataContentType(), buf.Bytes())
	if err != nil {
		return "", err
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusCreated {
		return "", statusError(resp)
	}
	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("apiclient: yanıt okunamadı: %w", err)
	}
	return out.URL, nil
}

// RemoteAttachment sunucudaki taslak eki.
type RemoteAttachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Draft sunucudan geri yüklenen taslak.
type Draft struct {
	InstanceID      string            `json:"instance_id"`
	Fields          map[string]any    `json:"fields"`
	AttachmentField string            `json:"attachment_field"`
	Attachment      *RemoteAttachment `json:"attachment"`
	Revision        int               `json:"revision"`
	SavedAt         time.Time         `json:"saved_at"`
}

// LoadDraft oturumun kind taslağını getirir; yoksa ErrNoDraft.
func (c *Client) LoadDraft(ctx context.Context, kind string) (*Draft, error) {
	resp, err := c.send(ctx, http.MethodGet, c.url("/api/drafts/"+url.PathEscape(kind), nil), "", nil)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNoDraft
	default:
		return nil, statusError(resp)
	}
	var d Draft
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("apiclient: taslak okunamadı: %w", err)
	}
	return &d, nil
}

// DiscardDraft oturumun taslağını siler. Taslak yoksa hata dönmez.
func (c *Client) DiscardDraft(ctx context.Context, kind string) error {
	resp, err := c.send(ctx, http.MethodDelete, c.url("/api/drafts/"+url.PathEscape(kind), nil), "", nil)
	if err != nil {
		return err
	}
	defer drain(resp)
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return statusError(resp)
}

// storedCookie oturum dosyasındaki çerez.
type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// LoadSession path'teki oturum çerezlerini jar'a yükler. Dosya yoksa hata dönmez.
func (c *Client) LoadSession(path string) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var stored []storedCookie
	if err := json.Unmarshal(b, &stored); err != nil {
		return fmt.Errorf("apiclient: oturum dosyası bozuk: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(stored))
	for _, s := range stored {
		cookies = append(cookies, &http.Cookie{Name: s.Name, Value: s.Value, Path: "/"})
	}
	c.http.Jar.SetCookies(c.base, cookies)
	return nil
}

// SaveSession jar'daki çerezleri path'e yazar; sonraki çalıştırmalar aynı
// taslağa erişir.
func (c *Client) SaveSession(path string) error {
	cookies := c.http.Jar.Cookies(c.base)
	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value})
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func (c *Client) send(ctx context.Context, method, target, contentType string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	return c.http.Do(req)
}

// encodeDraft taslak gövdesini hazırlar. Ek dosya içeriği burada kopyalanır.
func encodeDraft(req autosave.DraftRequest) ([]byte, string, error) {
	values := req.Record.Values()
	if req.Record.Attachment == nil {
		b, err := json.Marshal(map[string]any{"instance_id": req.InstanceID, "fields": values})
		return b, "application/json", err
	}

	fields, err := json.Marshal(values)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("instance_id", req.InstanceID)
	_ = w.WriteField("fields", string(fields))
	_ = w.WriteField("attachment_field", req.Record.AttachmentField)
	if err := writeFilePart(w, "attachment", req.Record.Attachment); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, a *autosave.Attachment) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, a.Name))
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, a.Reader()); err != nil {
		return fmt.Errorf("apiclient: ek okunamadı: %w", err)
	}
	return nil
}

func statusError(resp *http.Response) error {
	var out struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&out)
	return &StatusError{Code: resp.StatusCode, Message: out.Error}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

var (
	_ autosave.DraftSender = (*Client)(nil)
	_ autosave.Beacon      = (*Client)(nil)
	_ autosave.Submitter   = (*Client)(nil)
)
