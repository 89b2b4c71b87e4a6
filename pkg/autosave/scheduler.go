package autosave

import (
	"sync"
	"time"
)

// DefaultQuietPeriod son düzenlemeden sonra taslak kaydına kadar beklenen süre.
const DefaultQuietPeriod = 2000 * time.Millisecond

// IdleScheduler düzenlemede bir duraklama algılar ve sessizlik süresi dolunca
// fire'ı çağırır. Her Touch önceki zamanlayıcıyı tamamen iptal eder (debounce).
type IdleScheduler struct {
	mu    sync.Mutex
	quiet time.Duration
	timer *time.Timer
	gen   uint64
	guard *Guard
	fire  func()
}

// NewIdleScheduler yeni bir zamanlayıcı oluşturur. guard nil olabilir.
func NewIdleScheduler(quiet time.Duration, guard *Guard, fire func()) *IdleScheduler {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &IdleScheduler{quiet: quiet, guard: guard, fire: fire}
}

// Touch bekleyen zamanlayıcıyı iptal edip yenisini başlatır. Guard devredeyse
// hiçbir şey yapmaz.
func (s *IdleScheduler) Touch() {
	if s.guard != nil && !s.guard.AllowsDrafts() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.quiet, func() { s.expire(gen) })
}

// Cancel bekleyen zamanlayıcıyı koşulsuz temizler.
func (s *IdleScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
}

// Pending bekleyen bir zamanlayıcı varsa true döner.
func (s *IdleScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

func (s *IdleScheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// expire zamanlayıcı goroutine'inde çalışır. Stop'un yetişemediği eski
// zamanlayıcılar nesil numarasıyla elenir.
func (s *IdleScheduler) expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.timer == nil {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()

	if s.guard != nil && !s.guard.AllowsDrafts() {
		return
	}
	if s.fire != nil {
		s.fire()
	}
}
