package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "risk_zones"

// Analysis outcomes recorded on AnalysisOutcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeInternal = "internal"
	OutcomeCanceled = "canceled"
)

// Snapshot cycle stages recorded on SnapshotErrors.
const (
	StageSource  = "source"
	StageAnalyze = "analyze"
	StagePublish = "publish"
)

// Metrics holds the Prometheus collectors for analysis runs and the snapshot
// publisher.
type Metrics struct {
	AnalysisDuration  prometheus.Histogram
	AnalysisOutcomes  *prometheus.CounterVec // labels: outcome={success,invalid,internal,canceled}
	IncidentsAnalyzed prometheus.Counter
	NoisePoints       prometheus.Counter
	ZonesPerAnalysis  prometheus.Histogram

	// Snapshot publisher metrics.
	PipelineRunning    prometheus.Gauge
	SnapshotsPublished prometheus.Counter
	SnapshotErrors     *prometheus.CounterVec // labels: stage={source,analyze,publish}
	SnapshotZones      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := NewUnregisteredMetrics()
	prometheus.MustRegister(
		m.AnalysisDuration,
		m.AnalysisOutcomes,
		m.IncidentsAnalyzed,
		m.NoisePoints,
		m.ZonesPerAnalysis,
		m.PipelineRunning,
		m.SnapshotsPublished,
		m.SnapshotErrors,
		m.SnapshotZones,
	)
	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, so
// tests can build as many as they like.
func NewMetricsForTesting() *Metrics {
	return NewUnregisteredMetrics()
}

// NewUnregisteredMetrics creates collectors without registering them, for
// one-shot tools that never expose /metrics.
func NewUnregisteredMetrics() *Metrics {
	return &Metrics{
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete cluster-aggregate-detect run.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AnalysisOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis runs by outcome.",
		}, []string{"outcome"}),
		IncidentsAnalyzed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_analyzed_total",
			Help:      "Total incidents fed into clustering.",
		}),
		NoisePoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "noise_points_total",
			Help:      "Total incidents left outside any cluster.",
		}),
		ZonesPerAnalysis: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "zones_per_analysis",
			Help:      "Number of risk zones produced per analysis run.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the snapshot publisher is active, 0 when shut down.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Total risk zone snapshots written to the sink topic.",
		}),
		SnapshotErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Snapshot cycle failures by stage.",
		}, []string{"stage"}),
		SnapshotZones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_zones",
			Help:      "Number of zones in the last published snapshot.",
		}),
	}
}
