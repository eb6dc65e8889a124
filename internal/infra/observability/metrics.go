package observability

import (
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	donationsCreated  *prometheus.CounterVec
	statusTransitions *prometheus.CounterVec
	completedAmount   prometheus.Counter
	storeErrors       *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	exports           *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_operation_duration_seconds",
				Help:    "Duration of ledger operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		donationsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_donations_created_total",
				Help: "Donation records created, by initial status.",
			},
			[]string{"status"},
		),
		statusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_status_transitions_total",
				Help: "Donation status transitions, by outcome and target status.",
			},
			[]string{"outcome", "to"},
		),
		completedAmount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_completed_amount_total",
				Help: "Sum of amounts of donations that reached completed.",
			},
		),
		storeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_store_errors_total",
				Help: "Backing store failures, by operation.",
			},
			[]string{"op"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_exports_total",
				Help: "Exports served, by format.",
			},
			[]string{"format"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrDonationCreated counts a newly recorded donation.
func (m *Metrics) IncrDonationCreated(status domain.DonationStatus) {
	m.donationsCreated.WithLabelValues(string(status)).Inc()
}

// IncrTransition counts a status transition attempt. outcome is "applied" or "rejected".
func (m *Metrics) IncrTransition(outcome string, to domain.DonationStatus) {
	m.statusTransitions.WithLabelValues(outcome, string(to)).Inc()
}

// AddCompletedAmount adds a completed donation amount.
func (m *Metrics) AddCompletedAmount(amount float64) {
	if amount > 0 {
		m.completedAmount.Add(amount)
	}
}

// IncrStoreError increments the store error counter.
func (m *Metrics) IncrStoreError(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrExport counts a served export.
func (m *Metrics) IncrExport(format domain.ExportFormat) {
	m.exports.WithLabelValues(string(format)).Inc()
}

// GetLedgerSnapshot returns the counters as a JSON-friendly snapshot for
// GET /v1/metrics/ledger.
func (m *Metrics) GetLedgerSnapshot() *domain.LedgerMetrics {
	created := map[string]float64{}
	for _, s := range []domain.DonationStatus{domain.StatusPending, domain.StatusCompleted, domain.StatusFailed} {
		created[string(s)] = getCounterValue(m.donationsCreated, string(s))
	}

	transitions := map[string]float64{}
	for _, outcome := range []string{"applied", "rejected"} {
		for _, to := range []domain.DonationStatus{domain.StatusCompleted, domain.StatusFailed} {
			transitions[outcome+":"+string(to)] = getCounterValue(m.statusTransitions, outcome, string(to))
		}
	}

	exports := map[string]float64{}
	for _, f := range []domain.ExportFormat{domain.ExportCSV, domain.ExportTable} {
		exports[string(f)] = getCounterValue(m.exports, string(f))
	}

	hits := getCounterValue(m.cacheHits, "report")
	misses := getCounterValue(m.cacheMisses, "report")
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.LedgerMetrics{
		DonationsCreated:    created,
		StatusTransitions:   transitions,
		CompletedAmount:     readCounter(m.completedAmount),
		StoreErrors:         sumCounterVec(m.storeErrors),
		Exports:             exports,
		ReportCacheHitRate:  hitRate,
		ReportCacheRequests: hits + misses,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return readCounter(cv.WithLabelValues(labels...))
}

func readCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds every child of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 16)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	total := float64(0)
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
