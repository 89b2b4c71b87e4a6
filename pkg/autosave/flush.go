package autosave

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
)

// Beacon sayfa kapanırken kullanılan ateşle-unut taşıyıcıdır. SendBeacon
// beklemeden dönmelidir; gövdeyi dönmeden önce kopyalamalıdır çünkü form
// hemen ardından ek dosyaları bırakır.
type Beacon interface {
	SendBeacon(req DraftRequest)
}

// Lifecycle barındıran ortamın "görünüm atılıyor" bildirimidir. OnDiscard
// dönen fonksiyon kaydı iptal eder.
type Lifecycle interface {
	OnDiscard(fn func()) (cancel func())
}

// UnloadFlush sayfa bırakılırken son bir taslak gönderimi yapar. Form örneği
// başına en fazla bir kez gönderir.
type UnloadFlush struct {
	kind       string
	instanceID string
	guard      *Guard
	draft      func() DraftRecord
	beacon     Beacon
	log        *zap.Logger

	fired atomic.Bool
}

func NewUnloadFlush(kind, instanceID string, guard *Guard, draft func() DraftRecord, beacon Beacon, log *zap.Logger) *UnloadFlush {
	if log == nil {
		log = zap.NewNop()
	}
	return &UnloadFlush{kind: kind, instanceID: instanceID, guard: guard, draft: draft, beacon: beacon, log: log}
}

// Fire Guard hala Editing ise ve taslak boş değilse tek bir beacon gönderir.
// Gönderim yapıldıysa true döner. Panik veya hata dışarı taşmaz.
func (u *UnloadFlush) Fire() (sent bool) {
	if !u.fired.CompareAndSwap(false, true) {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			u.log.Error("Kapanış taslağı gönderilemedi", zap.String("kind", u.kind), zap.Any("panic", r))
			sent = false
		}
	}()

	if u.guard != nil && !u.guard.AllowsDrafts() {
		return false
	}
	rec := u.draft()
	if rec.Empty() {
		return false
	}
	if u.beacon == nil {
		u.log.Debug("Beacon tanımlı değil, kapanış taslağı atlandı", zap.String("kind", u.kind))
		return false
	}
	u.beacon.SendBeacon(DraftRequest{Kind: u.kind, InstanceID: u.instanceID, Record: rec})
	return true
}

// Fired Fire en az bir kez çağrıldıysa true döner.
func (u *UnloadFlush) Fired() bool { return u.fired.Load() }

// SignalLifecycle işletim sistemi sinyallerini görünüm atılma bildirimi olarak
// kullanır (komut satırı uygulamaları için).
type SignalLifecycle struct {
	Signals []os.Signal
}

// NewSignalLifecycle sinyal verilmezse SIGINT, SIGTERM ve SIGHUP dinlenir.
func NewSignalLifecycle(signals ...os.Signal) SignalLifecycle {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
	}
	return SignalLifecycle{Signals: signals}
}

func (l SignalLifecycle) OnDiscard(fn func()) func() {
	ch := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(ch, l.Signals...)

	go func() {
		select {
		case <-ch:
			fn()
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
