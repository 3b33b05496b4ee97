// Package metrics provides Prometheus metrics for the ETL pipeline.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus metrics of the pipeline.
//
// Every method is safe to call on a nil *Metrics, so packages can record
// unconditionally whether or not Init was called.
type Metrics struct {
	// Row metrics
	RowsRead     *prometheus.CounterVec
	RowsDropped  *prometheus.CounterVec
	RowsLoaded   *prometheus.CounterVec
	RowsReplaced *prometheus.CounterVec

	// Outcome metrics
	StreamOutcomes *prometheus.CounterVec
	RunOutcomes    *prometheus.CounterVec
	LastRunSuccess prometheus.Gauge

	// Timing metrics
	StageDuration *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	initOnce       sync.Once
)

// Init registers the pipeline metrics on the default Prometheus registry.
// Call this once at startup; later calls return the same instance.
func Init(namespace string) *Metrics {
	initOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer, namespace)
	})
	return defaultMetrics
}

// Get returns the global metrics instance, or nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// New builds a metrics set registered on reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "eftpulse"
	}
	f := promauto.With(reg)

	return &Metrics{
		RowsRead: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_read_total",
				Help:      "Raw rows read by each entity stream",
			},
			[]string{"stream"},
		),
		RowsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_dropped_total",
				Help:      "Raw rows dropped during cleaning, by reason",
			},
			[]string{"stream", "reason"},
		),
		RowsLoaded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_loaded_total",
				Help:      "Summary rows inserted into analytical tables",
			},
			[]string{"stream"},
		),
		RowsReplaced: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_replaced_total",
				Help:      "Existing summary rows deleted before reload",
			},
			[]string{"stream"},
		),
		StreamOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stream_outcomes_total",
				Help:      "Entity stream results by outcome and failed stage",
			},
			[]string{"stream", "outcome", "stage"},
		),
		RunOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Pipeline runs by terminal status",
			},
			[]string{"status"},
		),
		LastRunSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_success",
				Help:      "1 if the last run fully succeeded, 0 otherwise",
			},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
			},
			[]string{"stream", "stage"},
		),
	}
}

// AddRowsRead adds to the rows read counter.
func (m *Metrics) AddRowsRead(stream string, n int) {
	if m == nil {
		return
	}
	m.RowsRead.WithLabelValues(stream).Add(float64(n))
}

// AddRowsDropped adds to the rows dropped counter for one reason.
func (m *Metrics) AddRowsDropped(stream, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RowsDropped.WithLabelValues(stream, reason).Add(float64(n))
}

// AddRowsLoaded adds to the loaded and replaced counters.
func (m *Metrics) AddRowsLoaded(stream string, loaded int, replaced int64) {
	if m == nil {
		return
	}
	m.RowsLoaded.WithLabelValues(stream).Add(float64(loaded))
	m.RowsReplaced.WithLabelValues(stream).Add(float64(replaced))
}

// IncStreamOutcome records the result of one entity stream. stage is empty on success.
func (m *Metrics) IncStreamOutcome(stream, outcome, stage string) {
	if m == nil {
		return
	}
	m.StreamOutcomes.WithLabelValues(stream, outcome, stage).Inc()
}

// IncRunOutcome records the terminal status of a run.
func (m *Metrics) IncRunOutcome(status string, succeeded bool) {
	if m == nil {
		return
	}
	m.RunOutcomes.WithLabelValues(status).Inc()
	if succeeded {
		m.LastRunSuccess.Set(1)
	} else {
		m.LastRunSuccess.Set(0)
	}
}

// ObserveStage records the duration of one stage in seconds.
func (m *Metrics) ObserveStage(stream, stage string, seconds float64) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stream, stage).Observe(seconds)
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Push sends the gathered metrics to a Prometheus Pushgateway.
// Batch modes exit right after a run, so they push instead of waiting to be scraped.
func Push(ctx context.Context, endpoint, job string, g prometheus.Gatherer) error {
	if strings.TrimSpace(endpoint) == "" {
		return errors.New("pushgateway endpoint is required")
	}
	if strings.TrimSpace(job) == "" {
		return errors.New("pushgateway job is required")
	}
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return push.New(endpoint, job).Gatherer(g).PushContext(ctx)
}
