package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/incident-risk-zones/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/incident-risk-zones/internal/adapter/kafka"
	"github.com/couchcryptid/incident-risk-zones/internal/adapter/postgres"
	"github.com/couchcryptid/incident-risk-zones/internal/config"
	"github.com/couchcryptid/incident-risk-zones/internal/observability"
	"github.com/couchcryptid/incident-risk-zones/internal/pipeline"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	analyzer := pipeline.NewAnalyzer(pipeline.AnalyzerOptions{
		MaxIncidents: cfg.MaxIncidents,
		Index:        cfg.NeighborIndex,
		Workers:      cfg.ClusterWorkers,
	}, logger, metrics)

	opts := httpadapter.Options{Analyzer: analyzer, Defaults: cfg.DefaultParams}
	var checks []httpadapter.ReadinessChecker

	// Incident source (feature-flagged via DATABASE_URL).
	var source *postgres.Source
	if cfg.DatabaseURL != "" {
		source, err = postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to open incident source", "error", err)
			os.Exit(1)
		}
		opts.Source = source
		checks = append(checks, source)
		logger.Info("incident source enabled")
	} else {
		logger.Info("incident source disabled, only POST /api/risk-zones is served")
	}

	// Snapshot publisher (feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS).
	var writer *kafkaadapter.Writer
	var p *pipeline.Pipeline
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		p = pipeline.New(source, analyzer, writer, cfg.DefaultParams, cfg.SnapshotInterval, logger, metrics)
		checks = append(checks, p)
		logger.Info("snapshot publisher enabled", "topic", cfg.KafkaSnapshotTopic, "interval", cfg.SnapshotInterval)
	}

	opts.Ready = httpadapter.AllReady(checks...)
	srv := httpadapter.NewServer(cfg.HTTPAddr, opts, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start snapshot pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if source != nil {
		if err := source.Close(); err != nil {
			logger.Error("incident source close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
