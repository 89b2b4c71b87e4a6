package autosave

import (
	"maps"
	"slices"
	"sync"
)

// Field bir alan adı ve değeri çiftidir.
type Field struct {
	Name  string
	Value Value
}

// Snapshot formun o anki tüm alan değerleridir. Alan sırası ilk yazılış
// sırasıdır. Snapshot değiştirilemez; With yeni bir kopya döndürür.
type Snapshot struct {
	names   []string
	values  map[string]Value
	version uint64
}

// NewSnapshot verilen alanlarla sürüm 0 olan bir snapshot oluşturur.
func NewSnapshot(fields ...Field) Snapshot {
	s := Snapshot{values: make(map[string]Value, len(fields))}
	for _, f := range fields {
		if _, ok := s.values[f.Name]; !ok {
			s.names = append(s.names, f.Name)
		}
		s.values[f.Name] = f.Value
	}
	return s
}

// With name alanını v ile değiştirip sürümü bir artırılmış yeni snapshot döndürür.
func (s Snapshot) With(name string, v Value) Snapshot {
	next := Snapshot{
		names:   s.names,
		values:  make(map[string]Value, len(s.values)+1),
		version: s.version + 1,
	}
	maps.Copy(next.values, s.values)
	if _, ok := s.values[name]; !ok {
		// Clip, append'in önceki snapshot'ın dizisine yazmasını engeller.
		next.names = append(slices.Clip(s.names), name)
	}
	next.values[name] = v
	return next
}

// Get alanın değerini döndürür.
func (s Snapshot) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Version her SetField çağrısında artan sürüm numarası.
func (s Snapshot) Version() uint64 { return s.version }

func (s Snapshot) Len() int { return len(s.names) }

// Names alan adlarını yazılış sırasıyla döndürür.
func (s Snapshot) Names() []string { return slices.Clone(s.names) }

// Fields alanları sırasıyla döndürür.
func (s Snapshot) Fields() []Field {
	out := make([]Field, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, Field{Name: n, Value: s.values[n]})
	}
	return out
}

// Values snapshot'ı düz bir map olarak döndürür (gönderim ve doğrulama için).
func (s Snapshot) Values() map[string]any {
	out := make(map[string]any, len(s.names))
	for _, n := range s.names {
		out[n] = s.values[n].Interface()
	}
	return out
}

// Draft snapshot'tan kaydedilmeye değer alt kümeyi çıkarır. transient listesindeki
// alanlar (sadece arayüze ait alanlar) dahil edilmez. İlk dolu dosya alanı
// kaydın eki olur.
func (s Snapshot) Draft(transient ...string) DraftRecord {
	var rec DraftRecord
	for _, n := range s.names {
		if slices.Contains(transient, n) {
			continue
		}
		v := s.values[n]
		if v.Kind() == KindFile {
			switch a := v.File(); {
			case a == nil:
				// Kaldırılan ek boş değerle gider; sunucu kayıtlı eki bununla siler.
				rec.Fields = append(rec.Fields, Field{Name: n, Value: v})
			case rec.Attachment == nil:
				rec.Attachment = a
				rec.AttachmentField = n
			}
			continue
		}
		rec.Fields = append(rec.Fields, Field{Name: n, Value: v})
	}
	return rec
}

// DraftRecord sunucuya taslak olarak gönderilen alanlardır.
type DraftRecord struct {
	Fields          []Field
	Attachment      *Attachment
	AttachmentField string
}

// Empty kayıtta kırpıldıktan sonra dolu hiçbir metin alanı ve ek yoksa true döner.
// Boş kayıtlar için hiçbir ağ isteği yapılmaz.
func (r DraftRecord) Empty() bool {
	if r.Attachment != nil {
		return false
	}
	for _, f := range r.Fields {
		if !f.Value.Blank() {
			return false
		}
	}
	return true
}

// Values ek dosya hariç alanları düz map olarak döndürür.
func (r DraftRecord) Values() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Name] = f.Value.Interface()
	}
	return out
}

// FieldStore form örneğinin tek snapshot sahibidir. Her SetField sonrası
// onChange (zamanlayıcı) çağrılır. Doğrulama yapılmaz.
type FieldStore struct {
	mu       sync.RWMutex
	snap     Snapshot
	onChange func()
}

// NewFieldStore başlangıç snapshot'ı ile yeni bir FieldStore oluşturur.
func NewFieldStore(initial Snapshot, onChange func()) *FieldStore {
	if initial.values == nil {
		initial.values = map[string]Value{}
	}
	return &FieldStore{snap: initial, onChange: onChange}
}

// SetField name alanını değiştirir ve yeni snapshot'ı döndürür.
func (s *FieldStore) SetField(name string, v Value) Snapshot {
	_, next := s.exchange(name, v)
	return next
}

// exchange alanı değiştirir; önceki değeri de döndürür.
func (s *FieldStore) exchange(name string, v Value) (Value, Snapshot) {
	s.mu.Lock()
	prev := s.snap.values[name]
	s.snap = s.snap.With(name, v)
	next := s.snap
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
	return prev, next
}

// Snapshot o anki snapshot'ı döndürür.
func (s *FieldStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
