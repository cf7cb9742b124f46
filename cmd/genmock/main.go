// Command genmock generates a deterministic synthetic incident fixture:
// dense hotspots with a preferred category and peak hour, plus scattered
// noise. It runs the real analysis over the output and prints the resulting
// zones so test assertions can be updated.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/incidents.json -hotspots 3 -per-hotspot 40 -noise 20 -seed 1
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/couchcryptid/incident-risk-zones/internal/domain"
	"github.com/couchcryptid/incident-risk-zones/internal/geo"
	"github.com/couchcryptid/incident-risk-zones/internal/observability"
	"github.com/couchcryptid/incident-risk-zones/internal/pipeline"
)

// Downtown Quito.
var base = geo.Point{Lat: -0.1807, Lng: -78.4678}

var categories = []string{"robbery", "theft", "assault", "vandalism", "harassment"}

type options struct {
	hotspots   int
	perHotspot int
	noise      int
	spreadM    float64 // hotspot standard deviation in meters
	areaM      float64 // side of the square the hotspots and noise fall in
	seed       uint64
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the incident JSON fixture")
	hotspots := flag.Int("hotspots", 3, "number of dense hotspots")
	perHotspot := flag.Int("per-hotspot", 40, "incidents per hotspot")
	noise := flag.Int("noise", 20, "scattered incidents outside any hotspot")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	incidents := generate(options{
		hotspots:   *hotspots,
		perHotspot: *perHotspot,
		noise:      *noise,
		spreadM:    20,
		areaM:      4000,
		seed:       *seed,
	})
	log.Printf("generated %d incidents", len(incidents))

	if err := writeJSON(*out, incidents); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	return printStats(incidents)
}

// generate builds the fixture. The same options always produce the same
// incidents.
func generate(o options) []domain.Incident {
	r := rand.New(rand.NewPCG(o.seed, 0x9e3779b97f4a7c15))
	offset := distuv.Normal{Mu: 0, Sigma: o.spreadM, Src: rand.NewPCG(o.seed, 1)}
	hourJitter := distuv.Normal{Mu: 0, Sigma: 1.5, Src: rand.NewPCG(o.seed, 2)}

	incidents := make([]domain.Incident, 0, o.hotspots*o.perHotspot+o.noise)
	for h := 0; h < o.hotspots; h++ {
		center := jitter(base, (r.Float64()-0.5)*o.areaM, (r.Float64()-0.5)*o.areaM)
		category := categories[h%len(categories)]
		peak := r.IntN(domain.HoursPerDay)

		for i := 0; i < o.perHotspot; i++ {
			p := jitter(center, offset.Rand(), offset.Rand())
			cat := category
			switch {
			case r.Float64() < 0.1:
				cat = ""
			case r.Float64() < 0.25:
				cat = categories[r.IntN(len(categories))]
			}
			hour := -1
			if r.Float64() >= 0.15 {
				hour = wrapHour(peak + int(math.Round(hourJitter.Rand())))
			}
			incidents = append(incidents, newIncident(len(incidents), p, cat, hour))
		}
	}

	for i := 0; i < o.noise; i++ {
		p := jitter(base, (r.Float64()-0.5)*o.areaM*2, (r.Float64()-0.5)*o.areaM*2)
		incidents = append(incidents, newIncident(len(incidents), p, categories[r.IntN(len(categories))], r.IntN(domain.HoursPerDay)))
	}

	r.Shuffle(len(incidents), func(i, j int) { incidents[i], incidents[j] = incidents[j], incidents[i] })
	return incidents
}

func newIncident(n int, p geo.Point, category string, hour int) domain.Incident {
	inc := domain.NewIncident(round6(p.Lat), round6(p.Lng), category, hour)
	inc.ID = fmt.Sprintf("mock-%04d", n)
	return inc
}

// jitter shifts p by the given meters north and east.
func jitter(p geo.Point, north, east float64) geo.Point {
	metersPerDegree := geo.EarthRadiusMeters * math.Pi / 180
	return geo.Point{
		Lat: p.Lat + north/metersPerDegree,
		Lng: p.Lng + east/(metersPerDegree*math.Cos(p.Lat*math.Pi/180)),
	}
}

func wrapHour(h int) int {
	return ((h % domain.HoursPerDay) + domain.HoursPerDay) % domain.HoursPerDay
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(incidents []domain.Incident) error {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	analyzer := pipeline.NewAnalyzer(pipeline.AnalyzerOptions{}, logger, observability.NewUnregisteredMetrics())

	res, err := analyzer.Analyze(context.Background(), incidents, domain.DefaultParams())
	if err != nil {
		return fmt.Errorf("analyze fixture: %w", err)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Incidents: %d, zones: %d, noise: %d\n", len(incidents), len(res.Zones), res.NoiseCount)
	for _, z := range res.Zones {
		fmt.Printf("  zone %d: count=%d dominant=%s centroid=(%.6f, %.6f) slots=", z.ID, z.Count, z.DominantCategory, z.Lat, z.Lng)
		for _, s := range z.DangerSlots {
			fmt.Printf(" %s", s)
		}
		fmt.Println()
	}
	return nil
}
