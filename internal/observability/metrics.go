// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prop-trading-lab/internal/domain"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	RunsTotal                    *prometheus.CounterVec
	RunDuration                  prometheus.Histogram
	TradesSimulated              *prometheus.CounterVec
	SignalsSkipped               prometheus.Counter
	MarginRejections             prometheus.Counter
	VolatilityFloorSubstitutions prometheus.Counter

	// Challenge metrics
	ChallengeOutcomes *prometheus.CounterVec

	// Ingestion metrics
	BarsIngested     prometheus.Counter
	CandlesStreamed  prometheus.Counter
	StreamReconnects prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "prop_trading_lab"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "run_duration_seconds",
			Help:      "Simulation run duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		TradesSimulated: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated by exit reason",
		}, []string{"exit_reason"}),
		SignalsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "signals_skipped_total",
			Help:      "Total number of entry signals skipped by fail-closed sizing",
		}),
		MarginRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "margin_rejections_total",
			Help:      "Total number of entries rejected by the margin usage cap",
		}),
		VolatilityFloorSubstitutions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulator",
			Name:      "volatility_floor_substitutions_total",
			Help:      "Total number of unusable volatility values replaced by the floor",
		}),

		ChallengeOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "challenge",
			Name:      "outcomes_total",
			Help:      "Total number of challenge evaluations by terminal status",
		}, []string{"status"}),

		BarsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "bars_ingested_total",
			Help:      "Total number of bars loaded into storage",
		}),
		CandlesStreamed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "candles_streamed_total",
			Help:      "Total number of candles received from the live stream",
		}),
		StreamReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "stream_reconnects_total",
			Help:      "Total number of live stream reconnections",
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRun records a completed simulation run.
func (m *Metrics) RecordRun(res *domain.RunResult, durationSeconds float64, err error) {
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.RunDuration.Observe(durationSeconds)

	for _, tr := range res.Trades {
		m.TradesSimulated.WithLabelValues(tr.ExitReason).Inc()
	}
	m.SignalsSkipped.Add(float64(res.SkippedSignals))
	m.MarginRejections.Add(float64(res.MarginRejected))
	m.VolatilityFloorSubstitutions.Add(float64(res.VolatilityFloorUses))

	if res.Challenge != nil {
		m.ChallengeOutcomes.WithLabelValues(string(res.Challenge.Status)).Inc()
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
