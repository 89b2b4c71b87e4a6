// Package metrics taslak, gönderim ve yükleme sayaçlarını Prometheus formatında
// yayınlar. Sayaçlar ayrı bir registry'de tutulur; /metrics bu registry'yi sunar.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Taslak göz ardı edilme sebepleri.
const (
	ReasonEmpty  = "empty"
	ReasonClosed = "closed"
)

// Gönderim / yükleme sonuçları.
const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

var (
	Registry = prometheus.NewRegistry()

	DraftsSaved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "destek",
		Name:      "drafts_saved_total",
		Help:      "Kaydedilen (üzerine yazılan) taslak sayısı.",
	}, []string{"kind"})

	DraftsIgnored = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "destek",
		Name:      "drafts_ignored_total",
		Help:      "Boş veya kapanmış form örneği için gelen ve yok sayılan taslaklar.",
	}, []string{"kind", "reason"})

	DraftsPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "destek",
		Name:      "drafts_purged_total",
		Help:      "Süresi dolduğu için silinen taslak sayısı.",
	})

	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "destek",
		Name:      "submissions_total",
		Help:      "Kesin form gönderimleri.",
	}, []string{"kind", "result"})

	Uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "destek",
		Name:      "uploads_total",
		Help:      "Ek dosya yüklemeleri.",
	}, []string{"result"})

	UploadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "destek",
		Name:      "upload_bytes_total",
		Help:      "Başarıyla saklanan ek dosya baytları.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		DraftsSaved, DraftsIgnored, DraftsPurged, Submissions, Uploads, UploadBytes,
	)
}

// Handler Registry'yi sunan HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
