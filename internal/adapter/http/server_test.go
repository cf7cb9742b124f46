package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/incident-risk-zones/internal/adapter/http"
	"github.com/couchcryptid/incident-risk-zones/internal/domain"
	"github.com/couchcryptid/incident-risk-zones/internal/observability"
	"github.com/couchcryptid/incident-risk-zones/internal/pipeline"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockSource struct {
	incidents []domain.Incident
	err       error
}

func (m *mockSource) LoadIncidents(_ context.Context) ([]domain.Incident, error) {
	return m.incidents, m.err
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(context.Context, []domain.Incident, domain.Params) (pipeline.Result, error) {
	return pipeline.Result{}, domain.Internalf("zone 0 centroid is not finite")
}

func newAnalyzer() *pipeline.Analyzer {
	return pipeline.NewAnalyzer(pipeline.AnalyzerOptions{MaxIncidents: 100}, slog.Default(), observability.NewMetricsForTesting())
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", httpadapter.Options{
		Analyzer: newAnalyzer(),
		Defaults: domain.DefaultParams(),
		Ready:    &mockReadiness{err: readyErr},
	}, slog.Default())
}

func newSourceServer(src httpadapter.IncidentSource) *httpadapter.Server {
	return httpadapter.NewServer(":0", httpadapter.Options{
		Analyzer: newAnalyzer(),
		Source:   src,
		Defaults: domain.DefaultParams(),
	}, slog.Default())
}

// cluster returns n incidents within a few meters of each other.
func cluster(n int, category string, hour int) []domain.Incident {
	out := make([]domain.Incident, n)
	for i := range out {
		out[i] = domain.NewIncident(-0.1807+float64(i)*0.00001, -78.4678, category, hour)
	}
	return out
}

func serve(t *testing.T, srv *httpadapter.Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(t, newTestServer(nil), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(t, newTestServer(nil), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzWithoutCheckerIsReady(t *testing.T) {
	rec := serve(t, newSourceServer(&mockSource{}), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(t, newTestServer(fmt.Errorf("not ready yet")), http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestAllReady(t *testing.T) {
	ok := &mockReadiness{}
	down := &mockReadiness{err: errors.New("database unreachable")}

	require.NoError(t, httpadapter.AllReady().CheckReadiness(context.Background()))
	require.NoError(t, httpadapter.AllReady(ok, nil).CheckReadiness(context.Background()))
	assert.EqualError(t, httpadapter.AllReady(ok, down).CheckReadiness(context.Background()), "database unreachable")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, newTestServer(nil), http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestClusters_FromSource(t *testing.T) {
	incidents := append(cluster(6, "theft", 23), domain.NewIncident(10, 10, "arson", 3))
	srv := newSourceServer(&mockSource{incidents: incidents})

	rec := serve(t, srv, http.MethodGet, "/api/incidents/clusters?radius=75&threshold=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var zones []struct {
		ID               int            `json:"id"`
		Count            int            `json:"count"`
		DominantCategory string         `json:"dominant_category"`
		CategoryCounts   map[string]int `json:"category_counts"`
		HourHistogram    map[string]int `json:"hour_histogram"`
		DangerSlots      []struct {
			Start int `json:"start"`
			End   int `json:"end"`
		} `json:"danger_slots"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, 6, zones[0].Count)
	assert.Equal(t, "theft", zones[0].DominantCategory)
	assert.Equal(t, map[string]int{"theft": 6}, zones[0].CategoryCounts)
	assert.Equal(t, 6, zones[0].HourHistogram["23"])
	assert.Len(t, zones[0].HourHistogram, 24)
	// Smoothing with m=1 spreads hour 23 over 22..0; the run is split at
	// midnight.
	require.Len(t, zones[0].DangerSlots, 2)
	assert.Equal(t, 0, zones[0].DangerSlots[0].Start)
	assert.Equal(t, 1, zones[0].DangerSlots[0].End)
	assert.Equal(t, 22, zones[0].DangerSlots[1].Start)
	assert.Equal(t, 0, zones[0].DangerSlots[1].End)
}

func TestClusters_EmptySourceReturnsEmptyArray(t *testing.T) {
	rec := serve(t, newSourceServer(&mockSource{}), http.MethodGet, "/api/incidents/clusters", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestClusters_InvalidQueryReturns400(t *testing.T) {
	srv := newSourceServer(&mockSource{incidents: cluster(5, "theft", 1)})

	for _, q := range []string{"radius=abc", "threshold=5.5", "threshold=x", "k=high", "m=1.5", "radius=-10", "threshold=0", "m=30"} {
		t.Run(q, func(t *testing.T) {
			rec := serve(t, srv, http.MethodGet, "/api/incidents/clusters?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestClusters_NoSourceReturns503(t *testing.T) {
	rec := serve(t, newTestServer(nil), http.MethodGet, "/api/incidents/clusters", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClusters_SourceErrorReturns503(t *testing.T) {
	srv := newSourceServer(&mockSource{err: errors.New("connection refused")})

	rec := serve(t, srv, http.MethodGet, "/api/incidents/clusters", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClusters_InternalErrorReturns500(t *testing.T) {
	srv := httpadapter.NewServer(":0", httpadapter.Options{
		Analyzer: failingAnalyzer{},
		Source:   &mockSource{incidents: cluster(5, "theft", 1)},
		Defaults: domain.DefaultParams(),
	}, slog.Default())

	rec := serve(t, srv, http.MethodGet, "/api/incidents/clusters", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestClustersGeoJSON(t *testing.T) {
	srv := newSourceServer(&mockSource{incidents: cluster(5, "vandalism", 2)})

	rec := serve(t, srv, http.MethodGet, "/api/incidents/clusters.geojson", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			BBox       []float64      `json:"bbox"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	require.Len(t, f.Geometry.Coordinates, 2)
	assert.InDelta(t, -78.4678, f.Geometry.Coordinates[0], 1e-9)
	assert.Len(t, f.BBox, 4)
	assert.Equal(t, "vandalism", f.Properties["dominant_category"])
	assert.InDelta(t, 5, f.Properties["count"], 0)
}

func TestAnalyze_PostedIncidents(t *testing.T) {
	body, err := json.Marshal(map[string]any{
		"incidents": cluster(4, "theft", 8),
		"params":    map[string]any{"min_pts": 3, "m": 0},
	})
	require.NoError(t, err)

	rec := serve(t, newTestServer(nil), http.MethodPost, "/api/risk-zones", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var zones []domain.RiskZone
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, 4, zones[0].Count)
	assert.Equal(t, []domain.DangerSlot{{Start: 8, End: 9}}, zones[0].DangerSlots)
}

func TestAnalyze_EmptyIncidents(t *testing.T) {
	rec := serve(t, newTestServer(nil), http.MethodPost, "/api/risk-zones", `{"incidents":[]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAnalyze_BadRequests(t *testing.T) {
	cases := map[string]string{
		"malformed json":   `{"incidents":`,
		"string radius":    `{"incidents":[],"params":{"radius_m":"far"}}`,
		"invalid incident": `{"incidents":[{"lat":91,"lng":0}]}`,
		"bad hour":         `{"incidents":[{"lat":1,"lng":1,"hour":25}]}`,
		"negative radius":  `{"incidents":[{"lat":1,"lng":1}],"params":{"radius_m":-1}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, newTestServer(nil), http.MethodPost, "/api/risk-zones", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAnalyze_TooManyIncidents(t *testing.T) {
	body, err := json.Marshal(map[string]any{"incidents": cluster(101, "theft", 1)})
	require.NoError(t, err)

	rec := serve(t, newTestServer(nil), http.MethodPost, "/api/risk-zones", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too many incidents")
}

func TestParseParams(t *testing.T) {
	q := map[string][]string{"radius": {"120"}, "threshold": {"7"}, "k": {"0.5"}, "m": {"2"}}
	p, err := httpadapter.ParseParams(q, domain.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, domain.Params{RadiusMeters: 120, MinPoints: 7, Sensitivity: 0.5, SmoothingWindow: 2}, p)

	p, err = httpadapter.ParseParams(nil, domain.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultParams(), p)

	_, err = httpadapter.ParseParams(map[string][]string{"radius": {"NaN"}}, domain.DefaultParams())
	assert.ErrorIs(t, err, domain.ErrInvalidParams)
}
