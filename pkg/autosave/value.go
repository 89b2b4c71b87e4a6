package autosave

import (
	"slices"
	"strings"
)

// Kind bir alan değerinin türünü belirtir.
type Kind int

const (
	KindText Kind = iota // tek satır / çok satır metin
	KindList             // çoklu seçim
	KindFile             // ek dosya
)

// Value tek bir form alanının değeridir: metin, metin listesi veya ek dosya.
// Sıfır değeri boş bir metindir.
type Value struct {
	kind Kind
	text string
	list []string
	file *Attachment
}

// Text metin değeri oluşturur.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// List metin listesi değeri oluşturur. Verilen dilim kopyalanır.
func List(items ...string) Value {
	return Value{kind: KindList, list: slices.Clone(items)}
}

// File ek dosya değeri oluşturur.
func File(a *Attachment) Value { return Value{kind: KindFile, file: a} }

func (v Value) Kind() Kind { return v.kind }

// Text metin değerini döndürür; liste ve dosya için boş döner.
func (v Value) Text() string { return v.text }

// List liste değerinin kopyasını döndürür.
func (v Value) List() []string { return slices.Clone(v.list) }

// File ek dosyayı döndürür; dosya olmayan değerler için nil.
func (v Value) File() *Attachment {
	if v.kind != KindFile {
		return nil
	}
	return v.file
}

// Blank değer kırpıldıktan sonra boşsa true döner. Listeler, en az bir dolu
// eleman varsa dolu sayılır.
func (v Value) Blank() bool {
	switch v.kind {
	case KindText:
		return strings.TrimSpace(v.text) == ""
	case KindList:
		for _, item := range v.list {
			if strings.TrimSpace(item) != "" {
				return false
			}
		}
		return true
	case KindFile:
		return v.file == nil
	}
	return true
}

// Interface değeri JSON'a yazılabilecek düz Go tipine çevirir. Dosyalar için
// dosya adı döner; yükleme sonrası gerçek referans metin değeri olarak yazılır.
func (v Value) Interface() any {
	switch v.kind {
	case KindList:
		return slices.Clone(v.list)
	case KindFile:
		if v.file == nil {
			return ""
		}
		return v.file.Name
	default:
		return v.text
	}
}
