package autosave

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultSaveTimeout tek bir taslak isteği için üst süre.
const DefaultSaveTimeout = 10 * time.Second

// DraftRequest taslak uç noktasına gönderilen istektir.
type DraftRequest struct {
	Kind       string
	InstanceID string
	Record     DraftRecord
}

// DraftSender taslak kaydetme uç noktasıdır. Aynı oturum için tekrarlanan
// kayıtlar sunucuda üzerine yazılır.
type DraftSender interface {
	SaveDraft(ctx context.Context, req DraftRequest) error
}

// Persister taslakları en iyi çaba ile gönderir. Hatalar sadece loglanır,
// çağırana hiçbir zaman dönmez.
type Persister struct {
	kind       string
	instanceID string
	sender     DraftSender
	guard      *Guard
	timeout    time.Duration
	log        *zap.Logger

	inflight atomic.Int32
}

func NewPersister(kind, instanceID string, sender DraftSender, guard *Guard, timeout time.Duration, log *zap.Logger) *Persister {
	if timeout <= 0 {
		timeout = DefaultSaveTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Persister{
		kind:       kind,
		instanceID: instanceID,
		sender:     sender,
		guard:      guard,
		timeout:    timeout,
		log:        log,
	}
}

// Save kaydı bir kez göndermeyi dener. Kayıt boşsa veya Guard o anda devredeyse
// ağ isteği yapılmaz. İstek gönderilip başarılı olduysa true döner.
//
// Guard kontrolü gönderimden hemen önce yapılır; daha önce okunmuş bir duruma
// güvenilmez.
func (p *Persister) Save(rec DraftRecord) (ok bool) {
	if p.sender == nil || rec.Empty() {
		return false
	}
	if p.guard != nil && !p.guard.AllowsDrafts() {
		p.log.Debug("Taslak kaydı atlandı, gönderim başlamış", zap.String("kind", p.kind))
		return false
	}

	p.inflight.Add(1)
	defer p.inflight.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Taslak kaydı panik ile sonlandı", zap.String("kind", p.kind), zap.Any("panic", r))
			ok = false
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err := p.sender.SaveDraft(ctx, DraftRequest{Kind: p.kind, InstanceID: p.instanceID, Record: rec})
	if err != nil {
		p.log.Warn("Taslak kaydedilemedi",
			zap.String("kind", p.kind),
			zap.String("instance_id", p.instanceID),
			zap.Error(fmt.Errorf("taslak gönderimi: %w", err)),
		)
		return false
	}
	return true
}

// Saving en az bir taslak isteği sürüyorsa true döner (kaydediliyor göstergesi).
func (p *Persister) Saving() bool { return p.inflight.Load() > 0 }
