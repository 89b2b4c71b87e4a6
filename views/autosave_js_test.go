package views

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pageShim autosave.js'in kullandığı tarayıcı nesnelerinin en küçük karşılığıdır.
// Zamanlayıcılar elle tetiklenir; fetch sonucu __fetchMode ile seçilir.
const pageShim = `
var __timers = {}, __nextTimer = 1, __fetches = [], __beacons = [];
var __listeners = { window: {}, form: {} };
var __fetchMode = "ok";
var __submitReply = { success: true, id: "TK-1" };

function setTimeout(fn, ms) { var id = __nextTimer++; __timers[id] = fn; return id; }
function clearTimeout(id) { delete __timers[id]; }
function __fireTimers() {
  Object.keys(__timers).forEach(function (id) { var fn = __timers[id]; delete __timers[id]; fn(); });
}
function __pendingTimers() { return Object.keys(__timers).length; }

var console = { warn: function () {}, log: function () {} };

function fetch(url, opts) {
  __fetches.push({ url: url, method: opts.method, body: opts.body });
  if (__fetchMode === "offline") return Promise.reject(new Error("offline"));
  var ok = __fetchMode === "ok";
  return Promise.resolve({
    ok: ok,
    status: ok ? 200 : 500,
    json: function () { return Promise.resolve(__submitReply); }
  });
}

var navigator = {
  sendBeacon: function (url, data) { __beacons.push({ url: url, body: data }); return true; }
};

function __field(name, value, attrs) {
  return {
    name: name, value: value, type: "text", attrs: attrs || {},
    hasAttribute: function (a) { return Object.prototype.hasOwnProperty.call(this.attrs, a); }
  };
}

var __fields = [
  __field("instance_id", "inst-1"),
  __field("subject", ""),
  __field("problem", ""),
  __field("source", "web", { "data-transient": "" })
];
var __status = { textContent: "" };
var __form = {
  dataset: { kind: "ticket", instance: "inst-1" },
  elements: __fields,
  action: "/api/forms/ticket/submissions",
  addEventListener: function (ev, fn) { __listeners.form[ev] = fn; },
  querySelectorAll: function () { return []; },
  querySelector: function () { return null; }
};
var document = {
  getElementById: function (id) {
    if (id === "autosave-form") return __form;
    if (id === "autosave-status") return __status;
    return null;
  }
};
var window = {
  addEventListener: function (ev, fn) { __listeners.window[ev] = fn; },
  location: { pathname: "/forms/ticket", href: "" }
};

function __type(name, value) {
  __fields.forEach(function (f) { if (f.name === name) f.value = value; });
  __listeners.form.input({});
}
function __pagehide() { __listeners.window.pagehide({ persisted: false }); }
function __submit() { __listeners.form.submit({ preventDefault: function () {} }); }
`

type page struct {
	t  *testing.T
	vm *goja.Runtime
}

type sentDraft struct {
	InstanceID string         `json:"instance_id"`
	Fields     map[string]any `json:"fields"`
}

func loadPage(t *testing.T) *page {
	t.Helper()
	f, err := Static().Open("autosave.js")
	require.NoError(t, err)
	defer f.Close()
	script, err := io.ReadAll(f)
	require.NoError(t, err)

	vm := goja.New()
	_, err = vm.RunString(pageShim)
	require.NoError(t, err)
	_, err = vm.RunString(string(script))
	require.NoError(t, err)
	return &page{t: t, vm: vm}
}

// run ifadeyi çalıştırır; bekleyen Promise işleri dönüşten önce tamamlanır.
func (p *page) run(js string) goja.Value {
	p.t.Helper()
	v, err := p.vm.RunString(js)
	require.NoError(p.t, err)
	return v
}

func (p *page) count(js string) int {
	p.t.Helper()
	return int(p.run(js).ToInteger())
}

func (p *page) beacons() []sentDraft {
	p.t.Helper()
	var out []struct {
		URL  string `json:"url"`
		Body string `json:"body"`
	}
	require.NoError(p.t, json.Unmarshal([]byte(p.run("JSON.stringify(__beacons)").String()), &out))
	drafts := make([]sentDraft, 0, len(out))
	for _, b := range out {
		assert.Equal(p.t, "/api/drafts/ticket", b.URL)
		var d sentDraft
		require.NoError(p.t, json.Unmarshal([]byte(b.Body), &d))
		drafts = append(drafts, d)
	}
	return drafts
}

func TestAutosaveScript_FailedSaveStillFlushedOnPagehide(t *testing.T) {
	p := loadPage(t)
	p.run(`__fetchMode = "offline"; __type("problem", "Yazıcı bozuk")`)
	p.run(`__fireTimers()`)
	assert.Equal(t, 1, p.count("__fetches.length"))

	p.run(`__pagehide()`)
	beacons := p.beacons()
	require.Len(t, beacons, 1)
	assert.Equal(t, "inst-1", beacons[0].InstanceID)
	assert.Equal(t, "Yazıcı bozuk", beacons[0].Fields["problem"])
	assert.NotContains(t, beacons[0].Fields, "source")
	assert.NotContains(t, beacons[0].Fields, "instance_id")
}

func TestAutosaveScript_BeaconOncePerInstance(t *testing.T) {
	p := loadPage(t)
	p.run(`__type("subject", "Giriş")`)
	p.run(`__pagehide()`)
	assert.Equal(t, 0, p.count("__pendingTimers()"), "bekleyen kayıt iptal edilmeli")

	// bfcache dönüşü: aynı örnek tekrar gizlenir.
	p.run(`__type("subject", "Giriş sorunu"); __pagehide()`)
	assert.Len(t, p.beacons(), 1)
}

func TestAutosaveScript_SavedDraftFlushedAgainOnPagehide(t *testing.T) {
	p := loadPage(t)
	p.run(`__type("subject", "Giriş")`)
	p.run(`__fireTimers()`)
	require.Equal(t, 1, p.count("__fetches.length"))

	p.run(`__pagehide()`)
	beacons := p.beacons()
	require.Len(t, beacons, 1)
	assert.Equal(t, "Giriş", beacons[0].Fields["subject"])
}

func TestAutosaveScript_QuietPeriodCoalescesEdits(t *testing.T) {
	p := loadPage(t)
	p.run(`__type("subject", "G"); __type("subject", "Gi"); __type("subject", "Giriş")`)
	assert.Equal(t, 1, p.count("__pendingTimers()"))
	p.run(`__fireTimers()`)

	require.Equal(t, 1, p.count("__fetches.length"))
	assert.Equal(t, "PUT", p.run("__fetches[0].method").String())
	var d sentDraft
	require.NoError(t, json.Unmarshal([]byte(p.run("__fetches[0].body").String()), &d))
	assert.Equal(t, "Giriş", d.Fields["subject"])
}

func TestAutosaveScript_BlankDraftNeverSent(t *testing.T) {
	p := loadPage(t)
	p.run(`__type("subject", "   ")`)
	p.run(`__fireTimers(); __pagehide()`)
	assert.Equal(t, 0, p.count("__fetches.length"))
	assert.Empty(t, p.beacons())
}

func TestAutosaveScript_NoDraftAfterSubmit(t *testing.T) {
	p := loadPage(t)
	p.run(`__type("subject", "Giriş"); __type("problem", "Şifre")`)
	p.run(`__submit()`)
	assert.Equal(t, 0, p.count("__pendingTimers()"))

	// Geç düzenleme ve kapanış gönderim sonrası taslak üretmez.
	p.run(`__type("problem", "geç"); __fireTimers(); __pagehide()`)
	require.Equal(t, 1, p.count("__fetches.length"))
	assert.Equal(t, "POST", p.run("__fetches[0].method").String())
	var sent sentDraft
	require.NoError(t, json.Unmarshal([]byte(p.run("__fetches[0].body").String()), &sent))
	assert.Equal(t, "Şifre", sent.Fields["problem"])
	assert.Equal(t, "web", sent.Fields["source"], "geçici alan gönderimle yollanmalı")
	assert.Empty(t, p.beacons())
	assert.Contains(t, p.run("window.location.href").String(), "sent=TK-1")
}

func TestAutosaveScript_FailedSubmitReopensOnEdit(t *testing.T) {
	p := loadPage(t)
	p.run(`__submitReply = { success: false, errors: { problem: "zorunlu alan" } }; __fetchMode = "rejected"`)
	p.run(`__type("subject", "Giriş"); __submit()`)

	p.run(`__type("problem", "Şifre"); __fireTimers()`)
	require.Equal(t, 2, p.count("__fetches.length"))
	assert.Equal(t, "PUT", p.run("__fetches[1].method").String())

	p.run(`__pagehide()`)
	assert.Len(t, p.beacons(), 1)
}
