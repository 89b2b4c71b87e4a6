package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"destek.link/configs"
	"destek.link/database/dbtest"
	"destek.link/pkg/blobstore"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// browser çerezleri istekler arasında taşıyan basit istemci.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	dbtest.New(t)
	prev := configs.GetBlobStore()
	configs.SetBlobStore(blobstore.NewMemory("/uploads"))
	t.Cleanup(func() { configs.SetBlobStore(prev) })

	cfg := configs.LoadAppConfig()
	cfg.SubmitRatePerMin = 100
	return &browser{t: t, app: NewApp(cfg), cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(method, path, contentType string, body io.Reader) *http.Response {
	b.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	for _, c := range resp.Cookies() {
		b.cookies[c.Name] = c
	}
	return resp
}

func (b *browser) json(method, path string, v any) *http.Response {
	body, err := json.Marshal(v)
	require.NoError(b.t, err)
	return b.do(method, path, fiber.MIMEApplicationJSON, bytes.NewReader(body))
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func draftBody(instance string, fields map[string]any) map[string]any {
	return map[string]any{"instance_id": instance, "fields": fields}
}

func TestDraftLifecycle(t *testing.T) {
	b := newBrowser(t)

	resp := b.do(http.MethodGet, "/api/drafts/contact", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.json(http.MethodPut, "/api/drafts/contact", draftBody("i-1", map[string]any{"name": "", "services": []string{}}))
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode, "boş taslak kaydedilmez")

	resp = b.json(http.MethodPut, "/api/drafts/contact", draftBody("i-1", map[string]any{"name": "Ayşe", "services": []string{"web"}}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, 1.0, decode(t, resp)["revision"])

	resp = b.do(http.MethodGet, "/api/drafts/contact", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode(t, resp)
	assert.Equal(t, "i-1", got["instance_id"])
	assert.Equal(t, map[string]any{"name": "Ayşe", "services": []any{"web"}}, got["fields"])

	// Başka bir tarayıcı aynı taslağı görmez.
	other := &browser{t: t, app: b.app, cookies: map[string]*http.Cookie{}}
	resp = other.do(http.MethodGet, "/api/drafts/contact", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.do(http.MethodDelete, "/api/drafts/contact", "", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	resp = b.do(http.MethodGet, "/api/drafts/contact", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestDraft_BeaconTextPlain(t *testing.T) {
	b := newBrowser(t)
	body := `{"instance_id":"i-1","fields":{"subject":"Sayfa kapanıyor"}}`
	resp := b.do(http.MethodPost, "/api/drafts/ticket", "text/plain;charset=UTF-8", strings.NewReader(body))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = b.do(http.MethodGet, "/api/drafts/ticket", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Sayfa kapanıyor", decode(t, resp)["fields"].(map[string]any)["subject"])
}

func TestDraft_BadRequests(t *testing.T) {
	b := newBrowser(t)
	resp := b.json(http.MethodPut, "/api/drafts/yok", draftBody("i", map[string]any{"a": "b"}))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.do(http.MethodPut, "/api/drafts/contact", fiber.MIMEApplicationJSON, strings.NewReader("{bozuk"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = b.json(http.MethodPut, "/api/drafts/contact", draftBody("i", map[string]any{"services": "web"}))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func multipartDraft(t *testing.T, instance, fields string, file []byte, fileName, contentType string) (string, io.Reader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("instance_id", instance))
	require.NoError(t, w.WriteField("fields", fields))
	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="attachment"; filename="`+fileName+`"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &buf
}

func TestDraft_MultipartAttachment(t *testing.T) {
	b := newBrowser(t)

	ct, body := multipartDraft(t, "i-1", `{"subject":"Ekran hatası"}`, pngHeader, "ekran.png", "image/png")
	resp := b.do(http.MethodPut, "/api/drafts/ticket", ct, body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = b.do(http.MethodGet, "/api/drafts/ticket", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode(t, resp)
	assert.Equal(t, "screenshot", got["attachment_field"])
	att := got["attachment"].(map[string]any)
	assert.Equal(t, "ekran.png", att["name"])

	url := att["url"].(string)
	resp = b.do(http.MethodGet, url, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, pngHeader, data)

	ct, body = multipartDraft(t, "i-1", `{"subject":"x"}`, []byte("düz metin"), "not.txt", "text/plain")
	resp = b.do(http.MethodPut, "/api/drafts/ticket", ct, body)
	assert.Equal(t, fiber.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestSubmit_ClosesDraft(t *testing.T) {
	b := newBrowser(t)

	resp := b.json(http.MethodPut, "/api/drafts/contact", draftBody("i-1", map[string]any{"name": "Ayşe"}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = b.json(http.MethodPost, "/api/forms/contact/submissions", draftBody("i-1", map[string]any{
		"name": "Ayşe Yılmaz", "email": "ayse@example.com", "message": "Merhaba", "services": []string{"seo"},
	}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, true, out["success"])
	assert.NotEmpty(t, out["id"])

	// Gönderimden sonra gelen geç taslak yok sayılır.
	resp = b.json(http.MethodPut, "/api/drafts/contact", draftBody("i-1", map[string]any{"name": "geç"}))
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	resp = b.do(http.MethodGet, "/api/drafts/contact", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	// Makbuz sadece gönderen oturuma görünür.
	ref := out["id"].(string)
	resp = b.do(http.MethodGet, "/api/forms/contact/submissions/"+ref, "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	got := decode(t, resp)
	assert.Equal(t, ref, got["id"])
	assert.Equal(t, "new", got["status"])

	resp = b.do(http.MethodGet, "/api/forms/ticket/submissions/"+ref, "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	other := &browser{t: t, app: b.app, cookies: map[string]*http.Cookie{}}
	resp = other.do(http.MethodGet, "/api/forms/contact/submissions/"+ref, "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmit_ValidationErrors(t *testing.T) {
	b := newBrowser(t)
	resp := b.json(http.MethodPost, "/api/forms/contact/submissions", draftBody("i-1", map[string]any{"email": "geçersiz"}))
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, false, out["success"])
	errs := out["errors"].(map[string]any)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "message")

	resp = b.json(http.MethodPost, "/api/forms/yok/submissions", draftBody("i-1", nil))
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSubmit_FormEncoded(t *testing.T) {
	b := newBrowser(t)
	form := "instance_id=i-7&name=Ali&email=ali%40example.com&message=Selam&services=web&services=mobil"
	resp := b.do(http.MethodPost, "/api/forms/contact/submissions", fiber.MIMEApplicationForm, strings.NewReader(form))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestUploadEndpoint(t *testing.T) {
	b := newBrowser(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "ekran.png")
	require.NoError(t, err)
	_, _ = part.Write(pngHeader)
	require.NoError(t, w.Close())

	resp := b.do(http.MethodPost, "/api/uploads?kind=ticket", w.FormDataContentType(), &buf)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "image/png", out["content_type"])
	assert.True(t, strings.HasPrefix(out["url"].(string), "/uploads/ticket/"))

	resp = b.do(http.MethodPost, "/api/uploads", fiber.MIMEApplicationJSON, strings.NewReader("{}"))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = b.do(http.MethodGet, "/uploads/ticket/yok.png", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestContactPage_PrefillsDraft(t *testing.T) {
	b := newBrowser(t)
	resp := b.json(http.MethodPut, "/api/drafts/contact", draftBody("i-1", map[string]any{"name": "Zeynep", "services": []string{"seo"}}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), `value="Zeynep"`)
	assert.Contains(t, string(html), `value="seo" checked`)
	assert.Contains(t, string(html), `data-kind="contact"`)
}

func TestTicketPage_SourceFromLink(t *testing.T) {
	b := newBrowser(t)

	resp := b.do(http.MethodGet, "/forms/ticket?source=footer", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), `type="hidden" id="f-source" name="source"`)
	assert.Contains(t, string(html), `value="footer"`)
	assert.NotContains(t, string(html), `for="f-source"`)
}

func TestMiscRoutes(t *testing.T) {
	b := newBrowser(t)

	resp := b.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "destek_drafts_purged_total")

	resp = b.do(http.MethodGet, "/static/autosave.js", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = b.do(http.MethodGet, "/olmayan-sayfa", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = b.do(http.MethodGet, "/forms/yok", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
