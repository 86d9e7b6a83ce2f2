// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"solana-prepump-engine/internal/breaker"
	"solana-prepump-engine/internal/domain"
	"solana-prepump-engine/internal/engine"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Cycle metrics
	CyclesTotal      prometheus.Counter
	CycleDuration    prometheus.Histogram
	CycleErrors      prometheus.Counter
	UniverseSize     prometheus.Gauge
	BatchSize        prometheus.Gauge
	TriggerThreshold prometheus.Gauge
	DegenRegime      prometheus.Gauge
	SnapshotsWritten prometheus.Counter
	AssetsSkipped    prometheus.Counter

	// Signal metrics
	SignalsTotal       *prometheus.CounterVec
	RejectionsTotal    prometheus.Counter
	CooldownSuppressed prometheus.Counter

	// Execution metrics
	PositionsOpened prometheus.Counter
	BreakerOpen     *prometheus.GaugeVec
	BreakerTrips    *prometheus.GaugeVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with the default
// Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	return newMetrics(namespace, prometheus.DefaultRegisterer)
}

func newMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "prepump"
	}
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "runs_total",
			Help:      "Total number of scoring cycles completed",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "duration_seconds",
			Help:      "Scoring cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CycleErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "errors_total",
			Help:      "Total number of contained per-asset cycle errors",
		}),
		UniverseSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "universe_size",
			Help:      "Number of assets in the active universe last cycle",
		}),
		BatchSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "batch_size",
			Help:      "Number of assets scored in the last batch",
		}),
		TriggerThreshold: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "trigger_threshold",
			Help:      "Instability index trigger threshold of the last cycle",
		}),
		DegenRegime: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "degen_regime",
			Help:      "1 when the last batch classified as DEGEN, 0 when STABLE",
		}),
		SnapshotsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "snapshots_written_total",
			Help:      "Total number of metric snapshots persisted",
		}),
		AssetsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cycle",
			Name:      "assets_skipped_total",
			Help:      "Total number of assets skipped due to observation failures",
		}),

		SignalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "recorded_total",
			Help:      "Total number of signals recorded by verdict",
		}, []string{"verdict"}),
		RejectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "rejections_total",
			Help:      "Total number of threshold crossings turned away by the safety filter",
		}),
		CooldownSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "cooldown_suppressed_total",
			Help:      "Total number of crossings suppressed by the signal cooldown",
		}),

		PositionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened",
		}),
		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "breaker_open",
			Help:      "1 when the named circuit breaker is open",
		}, []string{"collaborator"}),
		BreakerTrips: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "execution",
			Name:      "breaker_trips",
			Help:      "Cumulative trips of the named circuit breaker",
		}, []string{"collaborator"}),

		LastSuccessfulCycle: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last completed scoring cycle",
		}),
	}
}

// ObserveCycle folds one cycle result into the metric set.
func (m *Metrics) ObserveCycle(result *engine.CycleResult) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(float64(result.DurationMs) / 1000)
	m.CycleErrors.Add(float64(len(result.Errors)))
	m.UniverseSize.Set(float64(result.UniverseSize))
	m.BatchSize.Set(float64(result.BatchSize))
	m.TriggerThreshold.Set(result.Threshold)
	if result.Regime == domain.RegimeDegen.String() {
		m.DegenRegime.Set(1)
	} else {
		m.DegenRegime.Set(0)
	}
	m.SnapshotsWritten.Add(float64(result.SnapshotsWritten))
	m.AssetsSkipped.Add(float64(result.SkippedAssets))

	m.SignalsTotal.WithLabelValues(domain.VerdictExecute.String()).Add(float64(result.SignalsFired))
	m.SignalsTotal.WithLabelValues(domain.VerdictWait.String()).Add(float64(result.SignalsDowngraded))
	m.RejectionsTotal.Add(float64(result.Rejections))
	m.CooldownSuppressed.Add(float64(result.CooldownSuppressed))
	m.PositionsOpened.Add(float64(result.PositionsOpened))

	m.LastSuccessfulCycle.SetToCurrentTime()
}

// ObserveBreakers exports the current breaker states.
func (m *Metrics) ObserveBreakers(states []breaker.State) {
	for _, state := range states {
		open := 0.0
		if state.Open {
			open = 1
		}
		m.BreakerOpen.WithLabelValues(state.Name).Set(open)
		m.BreakerTrips.WithLabelValues(state.Name).Set(float64(state.Trips))
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
