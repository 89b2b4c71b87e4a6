// Package ticketform destek talebi formunun terminal arayüzüdür. Her tuş vuruşu
// autosave formuna yazılır; taslaklar motorun zamanlayıcısıyla kaydedilir.
package ticketform

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"destek.link/pkg/apiclient"
	"destek.link/pkg/autosave"
	"destek.link/pkg/formschema"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Alan adları sunucudaki ticket tanımıyla aynıdır.
const (
	FieldSubject    = "subject"
	FieldProblem    = "problem"
	FieldScreenshot = "screenshot"
)

const (
	focusSubject = iota
	focusProblem
	focusScreenshot
	focusCount
)

const (
	tickInterval  = 250 * time.Millisecond
	submitTimeout = 30 * time.Second
)

// Engine arayüzün kullandığı form motoru. *autosave.Form bunu sağlar.
type Engine interface {
	SetField(name string, v autosave.Value) autosave.Snapshot
	Attach(field string, a *autosave.Attachment) error
	Detach(field string) error
	Submit(ctx context.Context) (autosave.Receipt, error)
	Reopen() error
	State() autosave.State
	Saving() bool
}

var _ Engine = (*autosave.Form)(nil)

// Initial taslaktan geri yüklenen başlangıç değerleri.
type Initial struct {
	Subject        string
	Problem        string
	ScreenshotNote string // taslakta kayıtlı ekin adı; taslakta kalır ama dosya yeniden seçilmeden gönderilmez
}

type tickMsg time.Time

type submittedMsg struct {
	receipt autosave.Receipt
	err     error
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#73F59F"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
	focusStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#73F59F"))
)

// Model bubbletea modelidir. Değer alıcılı metotlar yeni bir Model döndürür;
// motor ise paylaşılır.
type Model struct {
	engine Engine
	open   func(path string) (*autosave.Attachment, error)

	subject    textinput.Model
	problem    textarea.Model
	screenshot textinput.Model
	focus      int

	attached    string
	note        string
	status      string
	fieldErrors map[string]string
	err         error
	submitting  bool
	receipt     *autosave.Receipt
	quitting    bool

	width int
}

// New modeli başlangıç değerleriyle kurar. Başlangıç değerleri motora ayrıca
// yazılmaz; motor aynı değerlerle autosave.WithInitial ile oluşturulmalıdır.
func New(engine Engine, initial Initial) Model {
	subject := textinput.New()
	subject.Placeholder = "Kısaca konu"
	subject.CharLimit = 200
	subject.SetValue(initial.Subject)
	subject.Focus()

	problem := textarea.New()
	problem.Placeholder = "Sorunu anlatın..."
	problem.CharLimit = 10000
	problem.ShowLineNumbers = false
	problem.SetHeight(6)
	problem.SetValue(initial.Problem)
	problem.Blur()

	screenshot := textinput.New()
	screenshot.Placeholder = "/yol/ekran.png (enter ile ekle)"

	return Model{
		engine:     engine,
		open:       autosave.OpenAttachment,
		subject:    subject,
		problem:    problem,
		screenshot: screenshot,
		focus:      focusSubject,
		note:       initial.ScreenshotNote,
	}
}

// WithOpener dosya açma fonksiyonunu değiştirir.
func (m Model) WithOpener(open func(path string) (*autosave.Attachment, error)) Model {
	m.open = open
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tick())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// Kayıt göstergesi motorun durumundan okunur.
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.problem.SetWidth(max(20, msg.Width-4))
		return m, nil

	case submittedMsg:
		return m.handleSubmitted(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m.forward(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	if m.receipt != nil {
		// Gönderildikten sonra herhangi bir tuş çıkar.
		m.quitting = true
		return m, tea.Quit
	}
	if m.submitting {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+s":
		return m.submit()
	case "tab":
		return m.setFocus((m.focus + 1) % focusCount), nil
	case "shift+tab":
		return m.setFocus((m.focus + focusCount - 1) % focusCount), nil
	case "enter":
		switch m.focus {
		case focusSubject:
			return m.setFocus(focusProblem), nil
		case focusScreenshot:
			return m.attach(), nil
		}
	}
	return m.forward(msg)
}

// forward mesajı odaktaki bileşene iletir ve değer değiştiyse motora yazar.
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case focusSubject:
		before := m.subject.Value()
		m.subject, cmd = m.subject.Update(msg)
		if v := m.subject.Value(); v != before {
			m = m.edit(FieldSubject, v)
		}
	case focusProblem:
		before := m.problem.Value()
		m.problem, cmd = m.problem.Update(msg)
		if v := m.problem.Value(); v != before {
			m = m.edit(FieldProblem, v)
		}
	case focusScreenshot:
		m.screenshot, cmd = m.screenshot.Update(msg)
	}
	return m, cmd
}

// edit başarısız gönderimden sonraki ilk düzenlemede formu yeniden açar.
func (m Model) edit(name, value string) Model {
	m.reopenIfFailed()
	m.engine.SetField(name, autosave.Text(value))
	delete(m.fieldErrors, name)
	return m
}

func (m *Model) reopenIfFailed() {
	if m.engine.State() != autosave.StateFailed {
		return
	}
	if err := m.engine.Reopen(); err == nil {
		m.err = nil
		m.status = ""
	}
}

func (m Model) attach() Model {
	m.reopenIfFailed()
	path := strings.TrimSpace(m.screenshot.Value())
	if path == "" {
		if err := m.engine.Detach(FieldScreenshot); err != nil {
			m.err = err
			return m
		}
		m.attached, m.note, m.err = "", "", nil
		return m
	}

	a, err := m.open(path)
	if err != nil {
		m.err = fmt.Errorf("dosya açılamadı: %w", err)
		return m
	}
	if err := m.engine.Attach(FieldScreenshot, a); err != nil {
		m.err = err
		return m
	}
	m.attached, m.note, m.err = a.Name, "", nil
	m.screenshot.SetValue("")
	return m
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	m.reopenIfFailed()
	m.submitting = true
	m.err = nil
	m.fieldErrors = nil
	m.status = "gönderiliyor…"
	engine := m.engine
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		rc, err := engine.Submit(ctx)
		return submittedMsg{receipt: rc, err: err}
	}
}

func (m Model) handleSubmitted(msg submittedMsg) Model {
	m.submitting = false
	m.status = ""
	if msg.err == nil {
		rc := msg.receipt
		m.receipt = &rc
		return m
	}
	// Yerel doğrulama formu Editing bırakır, sunucu reddi Failed yapar.
	var local *formschema.ValidationError
	var remote *apiclient.SubmitError
	switch {
	case errors.As(msg.err, &local):
		m.fieldErrors = maps.Clone(local.Fields)
	case errors.As(msg.err, &remote):
		m.fieldErrors = maps.Clone(remote.Fields)
	default:
		m.err = msg.err
		return m
	}
	m.err = errors.New("lütfen işaretli alanları düzeltin")
	return m
}

func (m Model) setFocus(i int) Model {
	m.subject.Blur()
	m.problem.Blur()
	m.screenshot.Blur()
	switch i {
	case focusSubject:
		m.subject.Focus()
	case focusProblem:
		m.problem.Focus()
	case focusScreenshot:
		m.screenshot.Focus()
	}
	m.focus = i
	return m
}

// Receipt başarılı gönderimin makbuzunu döndürür.
func (m Model) Receipt() (autosave.Receipt, bool) {
	if m.receipt == nil {
		return autosave.Receipt{}, false
	}
	return *m.receipt, true
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Destek Talebi"))
	b.WriteString("\n\n")

	if m.receipt != nil {
		b.WriteString(successStyle.Render("Talebiniz alındı. Takip numarası: " + m.receipt.ID))
		b.WriteString("\n\n")
		b.WriteString(mutedStyle.Render("Çıkmak için bir tuşa basın."))
		return b.String()
	}

	m.writeField(&b, focusSubject, "Konu", FieldSubject, m.subject.View())
	m.writeField(&b, focusProblem, "Sorun", FieldProblem, m.problem.View())

	shot := m.screenshot.View()
	switch {
	case m.attached != "":
		shot += "\n" + mutedStyle.Render("ekli: "+m.attached)
	case m.note != "":
		shot += "\n" + mutedStyle.Render("taslakta kayıtlı: "+m.note+" (göndermek için yeniden seçin)")
	}
	m.writeField(&b, focusScreenshot, "Ekran görüntüsü", FieldScreenshot, shot)

	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(m.footer()))
	return b.String()
}

func (m Model) writeField(b *strings.Builder, idx int, label, name, view string) {
	style := labelStyle
	if m.focus == idx {
		style = focusStyle
	}
	b.WriteString(style.Render(label))
	b.WriteString("\n")
	b.WriteString(view)
	b.WriteString("\n")
	if msg, ok := m.fieldErrors[name]; ok {
		b.WriteString(errorStyle.Render("  " + msg))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func (m Model) footer() string {
	var parts []string
	switch {
	case m.status != "":
		parts = append(parts, m.status)
	case m.engine.Saving():
		parts = append(parts, "kaydediliyor…")
	}
	if m.engine.State() == autosave.StateFailed {
		parts = append(parts, "gönderilemedi, düzenleyip tekrar deneyin")
	}
	parts = append(parts, "tab: alan değiştir • ctrl+s: gönder • esc: çık")
	return strings.Join(parts, " • ")
}
