package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/incident-risk-zones/internal/analysis"
	"github.com/couchcryptid/incident-risk-zones/internal/cluster"
	"github.com/couchcryptid/incident-risk-zones/internal/domain"
	"github.com/couchcryptid/incident-risk-zones/internal/geo"
	"github.com/couchcryptid/incident-risk-zones/internal/observability"
)

// AnalyzerOptions bounds and tunes analysis runs.
type AnalyzerOptions struct {
	MaxIncidents int               // 0 disables the ceiling
	Index        cluster.IndexKind // neighbour search strategy
	Workers      int               // neighbourhood precompute goroutines
}

// Result is the outcome of one analysis run.
type Result struct {
	Zones      []domain.RiskZone
	Labels     []int // one per input incident, cluster.Noise for noise
	NoiseCount int
}

// Analyzer runs the cluster-aggregate-detect chain over an incident list.
// It holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	opts    AnalyzerOptions
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts AnalyzerOptions, logger *slog.Logger, metrics *observability.Metrics) *Analyzer {
	return &Analyzer{opts: opts, logger: logger, metrics: metrics}
}

// Analyze validates the input, clusters the incidents and enriches every
// cluster with its category summary, hour histogram and danger slots. Zones
// are ordered by cluster id. An empty incident list yields an empty zone
// list.
//
// Caller errors are *domain.ValidationError. A degenerate result, such as a
// non-finite centroid, is reported as domain.ErrInternal.
func (a *Analyzer) Analyze(ctx context.Context, incidents []domain.Incident, params domain.Params) (res Result, err error) {
	start := time.Now()
	defer func() { a.record(start, len(incidents), res, err) }()

	if err := params.Validate(); err != nil {
		return Result{}, err
	}
	if a.opts.MaxIncidents > 0 && len(incidents) > a.opts.MaxIncidents {
		return Result{}, domain.TooManyIncidents(len(incidents), a.opts.MaxIncidents)
	}

	points := make([]geo.Point, len(incidents))
	for i, inc := range incidents {
		if err := inc.Validate(); err != nil {
			return Result{}, domain.AtIndex(err, i)
		}
		points[i] = geo.Point{Lat: inc.Latitude, Lng: inc.Longitude}
	}

	if len(incidents) == 0 {
		return Result{Zones: []domain.RiskZone{}, Labels: []int{}}, nil
	}

	clusters, err := cluster.DBSCAN(ctx, points, cluster.Options{
		RadiusMeters: params.RadiusMeters,
		MinPoints:    params.MinPoints,
		Index:        a.opts.Index,
		Workers:      a.opts.Workers,
	})
	if err != nil {
		return Result{}, err
	}
	a.logger.Debug("clustering complete",
		"incidents", len(incidents),
		"clusters", clusters.Clusters,
		"radius_m", params.RadiusMeters,
		"min_pts", params.MinPoints,
	)

	zones := make([]domain.RiskZone, 0, clusters.Clusters)
	for id, members := range clusters.Members() {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		zone, err := buildZone(id, incidents, members, params)
		if err != nil {
			return Result{}, err
		}
		zones = append(zones, zone)
	}

	return Result{Zones: zones, Labels: clusters.Labels, NoiseCount: clusters.NoiseCount()}, nil
}

func buildZone(id int, incidents []domain.Incident, members []int, params domain.Params) (domain.RiskZone, error) {
	if len(members) == 0 {
		return domain.RiskZone{}, domain.Internalf("zone %d has no members", id)
	}

	summary := analysis.Aggregate(incidents, members)
	if !finite(summary.Lat) || !finite(summary.Lng) {
		return domain.RiskZone{}, domain.Internalf("zone %d centroid is not finite (%v, %v)", id, summary.Lat, summary.Lng)
	}
	if summary.CategoryCounts.Total() != summary.Count {
		return domain.RiskZone{}, domain.Internalf("zone %d category counts sum to %d, want %d",
			id, summary.CategoryCounts.Total(), summary.Count)
	}

	hist := analysis.BuildHourHistogram(incidents, members)
	withHour := 0
	for _, idx := range members {
		if incidents[idx].HasHour() {
			withHour++
		}
	}
	if hist.Total() != withHour {
		return domain.RiskZone{}, domain.Internalf("zone %d hour histogram sums to %d, want %d", id, hist.Total(), withHour)
	}

	return domain.RiskZone{
		ID:               id,
		Lat:              summary.Lat,
		Lng:              summary.Lng,
		Count:            summary.Count,
		DominantCategory: summary.DominantCategory,
		CategoryCounts:   summary.CategoryCounts,
		HourHistogram:    hist,
		DangerSlots:      analysis.DetectDangerSlots(hist, params.Sensitivity, params.SmoothingWindow),
		Bounds:           summary.Bounds,
	}, nil
}

func (a *Analyzer) record(start time.Time, n int, res Result, err error) {
	outcome := observability.OutcomeSuccess
	switch {
	case err == nil:
	case domain.IsValidation(err):
		outcome = observability.OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = observability.OutcomeCanceled
	default:
		outcome = observability.OutcomeInternal
	}
	a.metrics.AnalysisOutcomes.WithLabelValues(outcome).Inc()

	if err != nil {
		if outcome == observability.OutcomeInternal {
			a.logger.Error("analysis failed", "error", err, "incidents", n)
		} else {
			a.logger.Debug("analysis rejected", "error", err, "outcome", outcome)
		}
		return
	}

	elapsed := time.Since(start)
	a.metrics.AnalysisDuration.Observe(elapsed.Seconds())
	a.metrics.IncidentsAnalyzed.Add(float64(n))
	a.metrics.NoisePoints.Add(float64(res.NoiseCount))
	a.metrics.ZonesPerAnalysis.Observe(float64(len(res.Zones)))
	a.logger.Info("analysis complete",
		"incidents", n,
		"zones", len(res.Zones),
		"noise", res.NoiseCount,
		"duration", elapsed,
	)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
