// Package formschema sitedeki formların alan tanımlarını tutar. Tanımlar gömülü
// forms.yaml dosyasından okunur; hem sunucu (taslak normalizasyonu, gönderim
// doğrulaması) hem de istemci (geçici alanlar, ek kuralları) aynı tanımı kullanır.
package formschema

import (
	_ "embed"
	"fmt"
	"net/mail"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// FieldType alanın veri tipidir.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeTextarea FieldType = "textarea"
	TypeEmail    FieldType = "email"
	TypeList     FieldType = "list"
	TypeSelect   FieldType = "select"
	TypeFile     FieldType = "file"
)

type Field struct {
	Name      string    `yaml:"name"`
	Label     string    `yaml:"label"`
	Type      FieldType `yaml:"type"`
	Required  bool      `yaml:"required"`
	Transient bool      `yaml:"transient"` // taslağa girmez, sadece kesin gönderimle saklanır
	MaxLen    int       `yaml:"max_len"`
	Options   []string  `yaml:"options"`
}

// AttachmentRule formun ek dosya kuralıdır.
type AttachmentRule struct {
	Field        string   `yaml:"field"`
	MaxBytes     int64    `yaml:"max_bytes"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type Schema struct {
	Kind       string          `yaml:"kind"`
	Title      string          `yaml:"title"`
	Fields     []Field         `yaml:"fields"`
	Attachment *AttachmentRule `yaml:"attachment"`
}

// Registry kind -> Schema eşlemesidir.
type Registry struct {
	schemas map[string]*Schema
	order   []string
}

//go:embed forms.yaml
var embedded []byte

var (
	defaultOnce sync.Once
	defaultReg  *Registry
	defaultErr  error
)

// Default gömülü tanımları bir kez yükler. Gömülü dosya bozuksa panikler.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg, defaultErr = Parse(embedded)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("formschema: gömülü forms.yaml okunamadı: %v", defaultErr))
	}
	return defaultReg
}

// Parse yaml içeriğinden bir Registry oluşturur.
func Parse(data []byte) (*Registry, error) {
	var doc struct {
		Forms []*Schema `yaml:"forms"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("formschema: %w", err)
	}
	reg := &Registry{schemas: make(map[string]*Schema, len(doc.Forms))}
	for _, s := range doc.Forms {
		if err := s.check(); err != nil {
			return nil, err
		}
		if _, dup := reg.schemas[s.Kind]; dup {
			return nil, fmt.Errorf("formschema: %q iki kez tanımlanmış", s.Kind)
		}
		reg.schemas[s.Kind] = s
		reg.order = append(reg.order, s.Kind)
	}
	return reg, nil
}

func (s *Schema) check() error {
	if s.Kind == "" {
		return fmt.Errorf("formschema: kind boş olamaz")
	}
	seen := map[string]bool{}
	for _, f := range s.Fields {
		if f.Name == "" || seen[f.Name] {
			return fmt.Errorf("formschema: %s: geçersiz veya tekrar eden alan %q", s.Kind, f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case TypeText, TypeTextarea, TypeEmail, TypeList, TypeSelect, TypeFile:
		default:
			return fmt.Errorf("formschema: %s.%s: bilinmeyen tip %q", s.Kind, f.Name, f.Type)
		}
	}
	if s.Attachment != nil {
		f, ok := s.Field(s.Attachment.Field)
		if !ok || f.Type != TypeFile {
			return fmt.Errorf("formschema: %s: ek alanı %q dosya tipinde değil", s.Kind, s.Attachment.Field)
		}
	}
	return nil
}

// Get kind için tanımı döndürür.
func (r *Registry) Get(kind string) (*Schema, bool) {
	s, ok := r.schemas[kind]
	return s, ok
}

// Kinds tanımlı form türlerini dosyadaki sırayla döndürür.
func (r *Registry) Kinds() []string { return slices.Clone(r.order) }

func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// TransientFields taslağa dahil edilmeyen alanların adları.
func (s *Schema) TransientFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Transient {
			out = append(out, f.Name)
		}
	}
	return out
}

// ValidationError alan adı -> hata mesajı.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+e.Fields[n])
	}
	return "form doğrulanamadı: " + strings.Join(parts, "; ")
}

// Normalize taslak değerlerini tanıma göre düz tiplere çevirir: liste alanları
// []string, diğerleri string. Bilinmeyen ve geçici alanlar atılır. JSON'dan
// gelen []any değerleri de kabul edilir.
func (s *Schema) Normalize(values map[string]any) (map[string]any, error) {
	return s.normalize(values, false)
}

// NormalizeSubmission Normalize gibidir ama geçici alanları korur. Geçici alanlar
// (ör. talebin açıldığı arayüz) taslağa girmez, kesin gönderimle saklanır.
func (s *Schema) NormalizeSubmission(values map[string]any) (map[string]any, error) {
	return s.normalize(values, true)
}

func (s *Schema) normalize(values map[string]any, keepTransient bool) (map[string]any, error) {
	out := make(map[string]any, len(s.Fields))
	verr := &ValidationError{Fields: map[string]string{}}
	for _, f := range s.Fields {
		raw, ok := values[f.Name]
		if !ok || raw == nil || (f.Transient && !keepTransient) {
			continue
		}
		if f.Type == TypeList {
			list, ok := toStrings(raw)
			if !ok {
				verr.Fields[f.Name] = "liste bekleniyor"
				continue
			}
			out[f.Name] = list
			continue
		}
		str, ok := raw.(string)
		if !ok {
			verr.Fields[f.Name] = "metin bekleniyor"
			continue
		}
		out[f.Name] = str
	}
	if len(verr.Fields) > 0 {
		return out, verr
	}
	return out, nil
}

// Blank normalize edilmiş değerlerde dolu hiçbir alan yoksa true döner.
func Blank(values map[string]any) bool {
	for _, v := range values {
		switch x := v.(type) {
		case string:
			if strings.TrimSpace(x) != "" {
				return false
			}
		case []string:
			for _, item := range x {
				if strings.TrimSpace(item) != "" {
					return false
				}
			}
		}
	}
	return true
}

// Validate kesin gönderim için normalize edilmiş değerleri doğrular. Taslaklar
// doğrulanmaz.
func (s *Schema) Validate(values map[string]any) error {
	verr := &ValidationError{Fields: map[string]string{}}
	for _, f := range s.Fields {
		if f.Transient {
			continue
		}
		if msg := f.check(values[f.Name]); msg != "" {
			verr.Fields[f.Name] = msg
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return nil
}

func (f Field) check(v any) string {
	if f.Type == TypeList {
		list, _ := toStrings(v)
		if f.Required && Blank(map[string]any{f.Name: list}) {
			return "en az bir seçim yapılmalı"
		}
		if len(f.Options) > 0 {
			for _, item := range list {
				if !slices.Contains(f.Options, item) {
					return fmt.Sprintf("geçersiz seçim %q", item)
				}
			}
		}
		return ""
	}

	str, _ := v.(string)
	str = strings.TrimSpace(str)
	if str == "" {
		if f.Required {
			return "zorunlu alan"
		}
		return ""
	}
	if f.MaxLen > 0 && utf8.RuneCountInString(str) > f.MaxLen {
		return fmt.Sprintf("en fazla %d karakter", f.MaxLen)
	}
	switch f.Type {
	case TypeEmail:
		if addr, err := mail.ParseAddress(str); err != nil || addr.Address != str {
			return "geçerli bir e-posta adresi girin"
		}
	case TypeSelect:
		if len(f.Options) > 0 && !slices.Contains(f.Options, str) {
			return fmt.Sprintf("geçersiz seçim %q", str)
		}
	}
	return ""
}

func toStrings(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return slices.Clone(x), true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case nil:
		return nil, true
	}
	return nil, false
}
