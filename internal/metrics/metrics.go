// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	rankChecksTotal      *prometheus.CounterVec
	batchesTotal         prometheus.Counter
	batchDurationSeconds prometheus.Histogram
	activeBatches        prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		rankChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placerank_checks_total",
				Help: "Total number of rank checks performed, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		batchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "placerank_batches_total",
				Help: "Total number of batch runs started.",
			},
		)
		batchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "placerank_batch_duration_seconds",
				Help:    "Histogram of batch wall times.",
				Buckets: []float64{1, 10, 30, 60, 120, 300, 600, 1800},
			},
		)
		activeBatches = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "placerank_active_batches",
				Help: "Number of batches currently running.",
			},
		)
	})
}

// CheckRecorded counts one per-campaign outcome.
func CheckRecorded(outcome string) {
	Init()
	rankChecksTotal.WithLabelValues(outcome).Inc()
}

// BatchStarted marks a batch run as in flight.
func BatchStarted() {
	Init()
	batchesTotal.Inc()
	activeBatches.Inc()
}

// BatchFinished marks a batch run as done.
func BatchFinished() {
	Init()
	activeBatches.Dec()
}

// BatchDuration observes one batch's elapsed wall time.
func BatchDuration(d time.Duration) {
	Init()
	batchDurationSeconds.Observe(d.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}
