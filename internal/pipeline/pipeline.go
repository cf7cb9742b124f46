package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"

	"github.com/couchcryptid/incident-risk-zones/internal/domain"
	"github.com/couchcryptid/incident-risk-zones/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// IncidentSource reads the current incident set from the data layer.
type IncidentSource interface {
	LoadIncidents(ctx context.Context) ([]domain.Incident, error)
}

// SnapshotLoader publishes an analysed snapshot to the destination.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, snapshot domain.Snapshot) error
}

// Pipeline periodically analyses the full incident set and publishes the
// resulting risk zones.
type Pipeline struct {
	source   IncidentSource
	analyzer *Analyzer
	loader   SnapshotLoader
	params   domain.Params
	interval time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool
}

// New creates a Pipeline that analyses with params every interval.
func New(source IncidentSource, analyzer *Analyzer, loader SnapshotLoader, params domain.Params, interval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:   source,
		analyzer: analyzer,
		loader:   loader,
		params:   params,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
	}
}

// CheckReadiness returns nil once a snapshot has been published.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published a snapshot yet")
	}
	return nil
}

// Run executes the load-analyze-publish loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.cycle(ctx, &backoff) {
			return nil
		}
	}
}

// cycle runs one snapshot. Source and sink failures are retried with
// exponential backoff; analysis failures wait for the next interval since
// the same data would fail again. Returns false if the pipeline should stop.
func (p *Pipeline) cycle(ctx context.Context, backoff *time.Duration) bool {
	incidents, err := p.source.LoadIncidents(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load incidents failed", "error", err)
		p.metrics.SnapshotErrors.WithLabelValues(observability.StageSource).Inc()
		return p.backoffOrStop(ctx, backoff)
	}

	snapshot, err := p.Snapshot(ctx, incidents)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("snapshot analysis failed", "error", err, "incidents", len(incidents))
		p.metrics.SnapshotErrors.WithLabelValues(observability.StageAnalyze).Inc()
		return sleepWithContext(ctx, p.interval)
	}

	if err := p.loader.LoadSnapshot(ctx, snapshot); err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("publish snapshot failed", "error", err, "snapshot_id", snapshot.ID)
		p.metrics.SnapshotErrors.WithLabelValues(observability.StagePublish).Inc()
		return p.backoffOrStop(ctx, backoff)
	}

	*backoff = initialBackoff
	p.ready.Store(true)
	p.metrics.SnapshotsPublished.Inc()
	p.metrics.SnapshotZones.Set(float64(len(snapshot.Zones)))
	p.logger.Info("snapshot published",
		"snapshot_id", snapshot.ID,
		"zones", len(snapshot.Zones),
		"incidents", snapshot.IncidentCount,
	)

	return sleepWithContext(ctx, p.interval)
}

// Snapshot analyses incidents with the pipeline parameters and stamps the
// result with a fresh id and the current time.
func (p *Pipeline) Snapshot(ctx context.Context, incidents []domain.Incident) (domain.Snapshot, error) {
	res, err := p.analyzer.Analyze(ctx, incidents, p.params)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{
		ID:            uuid.NewString(),
		GeneratedAt:   domain.Now(),
		Params:        p.params,
		IncidentCount: len(incidents),
		NoiseCount:    res.NoiseCount,
		Zones:         res.Zones,
	}, nil
}

// backoffOrStop sleeps with the current backoff and advances it. Returns
// false if the context ends first.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = sharedretry.NextBackoff(*backoff, maxBackoff)
	return true
}

// sleepWithContext sleeps for d. A cancelled context reports false even for
// a zero interval.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	return sharedretry.SleepWithContext(ctx, d)
}
