package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	evaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openhours",
			Name:      "evaluations_total",
			Help:      "Count of status evaluations by resulting status.",
		},
		[]string{"status"},
	)

	statusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openhours",
			Name:      "status_changes_total",
			Help:      "Count of status transitions by new status.",
		},
		[]string{"status"},
	)

	fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openhours",
			Name:      "source_fetch_total",
			Help:      "Count of schedule document fetches by result.",
		},
		[]string{"result"},
	)

	skipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openhours",
			Name:      "normalize_skipped_total",
			Help:      "Count of malformed entries skipped during normalization.",
		},
		[]string{"kind"},
	)

	openNow = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "openhours",
			Name:      "open",
			Help:      "1 while the business is open, 0 otherwise.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "openhours",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(evaluations, statusChanges, fetches, skipped, openNow, httpRequests)
	})
}

func IncEvaluation(status string) {
	evaluations.WithLabelValues(status).Inc()
}

func IncStatusChange(status string) {
	statusChanges.WithLabelValues(status).Inc()
}

func IncFetch(result string) {
	fetches.WithLabelValues(result).Inc()
}

func AddSkipped(kind string, n int) {
	if n <= 0 {
		return
	}
	skipped.WithLabelValues(kind).Add(float64(n))
}

func SetOpen(open bool) {
	if open {
		openNow.Set(1)
		return
	}
	openNow.Set(0)
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
