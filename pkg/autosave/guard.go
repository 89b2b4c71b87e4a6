package autosave

import (
	"fmt"
	"sync/atomic"
)

// State form örneğinin gönderim durumudur.
type State int32

const (
	StateEditing    State = iota // taslak kaydı sadece bu durumda yapılır
	StateSubmitting              // kesin gönderim sürüyor
	StateSubmitted               // başarıyla gönderildi (son durum)
	StateFailed                  // gönderim başarısız; Reopen ile düzenlemeye dönülebilir
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Guard gönderim durumunun tek sahibidir. Zamanlayıcı, taslak istemcisi ve
// sayfa bırakma kaydı durumu sadece buradan okur.
type Guard struct {
	state    atomic.Int32
	onEngage func()
}

// NewGuard Editing durumunda bir Guard oluşturur. onEngage BeginSubmit başarılı
// olduğunda, durum değiştikten hemen sonra çağrılır (zamanlayıcı iptali).
func NewGuard(onEngage func()) *Guard {
	return &Guard{onEngage: onEngage}
}

func (g *Guard) State() State { return State(g.state.Load()) }

// AllowsDrafts taslak kaydına izin veriliyorsa true döner. Her kayıt denemesi
// bunu gönderimden hemen önce tekrar okur.
func (g *Guard) AllowsDrafts() bool { return g.State() == StateEditing }

// BeginSubmit Editing -> Submitting geçişini atomik olarak yapar. Gönderim
// işleyicisinin başında, herhangi bir ağ çağrısından önce çağrılmalıdır.
func (g *Guard) BeginSubmit() error {
	if !g.state.CompareAndSwap(int32(StateEditing), int32(StateSubmitting)) {
		return fmt.Errorf("%w: %s", ErrNotEditing, g.State())
	}
	if g.onEngage != nil {
		g.onEngage()
	}
	return nil
}

// Settle gönderim sonucunu işler: başarıda Submitted, hatada Failed. Submitting
// dışındaki durumlarda bir şey yapmaz. Yeni durumu döndürür.
func (g *Guard) Settle(success bool) State {
	target := StateFailed
	if success {
		target = StateSubmitted
	}
	g.state.CompareAndSwap(int32(StateSubmitting), int32(target))
	return g.State()
}

// Reopen başarısız bir gönderimden sonra formu bilinçli olarak düzenlemeye açar.
func (g *Guard) Reopen() error {
	if !g.state.CompareAndSwap(int32(StateFailed), int32(StateEditing)) {
		return fmt.Errorf("%w: %s", ErrNotFailed, g.State())
	}
	return nil
}
