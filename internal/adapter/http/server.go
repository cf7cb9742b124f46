package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/incident-risk-zones/internal/domain"
	"github.com/couchcryptid/incident-risk-zones/internal/pipeline"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ZoneAnalyzer computes risk zones for an incident list.
type ZoneAnalyzer interface {
	Analyze(ctx context.Context, incidents []domain.Incident, params domain.Params) (pipeline.Result, error)
}

// IncidentSource reads the stored incident set.
type IncidentSource interface {
	LoadIncidents(ctx context.Context) ([]domain.Incident, error)
}

// Options wires the server to the analysis core. Source may be nil, in which
// case the source-backed endpoints answer 503.
type Options struct {
	Analyzer ZoneAnalyzer
	Source   IncidentSource
	Defaults domain.Params
	Ready    ReadinessChecker
}

// Server exposes the risk zone API together with health, readiness, and
// metrics endpoints.
type Server struct {
	httpServer *http.Server
	opts       Options
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the API routes, /healthz, /readyz,
// and /metrics.
func NewServer(addr string, opts Options, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		opts:   opts,
		logger: logger,
	}

	mux.HandleFunc("GET /api/incidents/clusters", s.handleClusters)
	mux.HandleFunc("GET /api/incidents/clusters.geojson", s.handleClustersGeoJSON)
	mux.HandleFunc("POST /api/risk-zones", s.handleAnalyze)

	ready := opts.Ready
	if ready == nil {
		ready = AllReady()
	}
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// AllReady combines checkers; the first failure wins. Nil checkers are
// skipped.
func AllReady(checkers ...ReadinessChecker) ReadinessChecker {
	return readinessChain(checkers)
}

type readinessChain []ReadinessChecker

func (c readinessChain) CheckReadiness(ctx context.Context) error {
	for _, checker := range c {
		if checker == nil {
			continue
		}
		if err := checker.CheckReadiness(ctx); err != nil {
			return err
		}
	}
	return nil
}
