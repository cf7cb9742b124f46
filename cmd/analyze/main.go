// Command analyze computes risk zones for a JSON file of incidents and prints
// them to stdout.
//
// Usage:
//
//	go run ./cmd/analyze -in data/mock/incidents.json -radius 75 -threshold 5
//	go run ./cmd/analyze -in - -format geojson < incidents.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/incident-risk-zones/internal/adapter/geojson"
	"github.com/couchcryptid/incident-risk-zones/internal/cluster"
	"github.com/couchcryptid/incident-risk-zones/internal/config"
	"github.com/couchcryptid/incident-risk-zones/internal/domain"
	"github.com/couchcryptid/incident-risk-zones/internal/observability"
	"github.com/couchcryptid/incident-risk-zones/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("ignoring unreadable .env file", "error", err)
	}

	defaults := domain.DefaultParams()
	in := flag.String("in", "", "incident JSON file, - for stdin")
	radius := flag.Float64("radius", defaults.RadiusMeters, "neighbourhood radius in meters")
	threshold := flag.Int("threshold", defaults.MinPoints, "minimum neighbourhood size, self included")
	k := flag.Float64("k", defaults.Sensitivity, "danger threshold sensitivity (mean + k*stddev)")
	m := flag.Int("m", defaults.SmoothingWindow, "hour smoothing half-window")
	format := flag.String("format", "json", "output format: json or geojson")
	index := flag.String("index", string(cluster.IndexS2), "neighbour index: s2 or bruteforce")
	workers := flag.Int("workers", 1, "goroutines used to precompute neighbourhoods")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -in")
	}
	if *format != "json" && *format != "geojson" {
		return fmt.Errorf("unknown format %q", *format)
	}
	kind, err := cluster.ParseIndexKind(*index)
	if err != nil {
		return err
	}

	incidents, err := readIncidents(*in)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	analyzer := pipeline.NewAnalyzer(pipeline.AnalyzerOptions{Index: kind, Workers: *workers}, logger, observability.NewUnregisteredMetrics())

	params := domain.Params{RadiusMeters: *radius, MinPoints: *threshold, Sensitivity: *k, SmoothingWindow: *m}
	res, err := analyzer.Analyze(ctx, incidents, params)
	if err != nil {
		return fmt.Errorf("analyze: %w", err)
	}

	log.Printf("%d incidents, %d zones, %d noise", len(incidents), len(res.Zones), res.NoiseCount)

	if *format == "geojson" {
		data, err := geojson.FromZones(res.Zones).MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode geojson: %w", err)
		}
		_, err = fmt.Fprintln(os.Stdout, string(data))
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Zones)
}

func readIncidents(path string) ([]domain.Incident, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open: %w", err)
		}
		defer f.Close()
		r = f
	}

	var incidents []domain.Incident
	if err := json.NewDecoder(r).Decode(&incidents); err != nil {
		return nil, fmt.Errorf("decode incidents: %w", err)
	}
	return incidents, nil
}
