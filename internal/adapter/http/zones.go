package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/incident-risk-zones/internal/adapter/geojson"
	"github.com/couchcryptid/incident-risk-zones/internal/domain"
)

// maxBodyBytes caps POST /api/risk-zones request bodies.
const maxBodyBytes = 32 << 20

type analyzeRequest struct {
	Incidents []domain.Incident `json:"incidents"`
	Params    domain.Params     `json:"params"`
}

func (s *Server) handleClusters(w http.ResponseWriter, r *http.Request) {
	zones, err := s.sourceZones(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, zones)
}

func (s *Server) handleClustersGeoJSON(w http.ResponseWriter, r *http.Request) {
	zones, err := s.sourceZones(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, err := geojson.FromZones(zones).MarshalJSON()
	if err != nil {
		s.writeError(w, r, domain.Internalf("encode geojson: %v", err))
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // best-effort response
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req := analyzeRequest{Params: s.opts.Defaults}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	res, err := s.opts.Analyzer.Analyze(r.Context(), req.Incidents, req.Params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res.Zones)
}

// sourceZones parses the query parameters, loads every stored incident and
// analyses them.
func (s *Server) sourceZones(r *http.Request) ([]domain.RiskZone, error) {
	params, err := ParseParams(r.URL.Query(), s.opts.Defaults)
	if err != nil {
		return nil, err
	}
	if s.opts.Source == nil {
		return nil, domain.ErrSourceUnavailable
	}

	incidents, err := s.opts.Source.LoadIncidents(r.Context())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceUnavailable, err)
	}

	res, err := s.opts.Analyzer.Analyze(r.Context(), incidents, params)
	if err != nil {
		return nil, err
	}
	return res.Zones, nil
}

// ParseParams reads radius, threshold, k and m from the query, falling back
// to defaults for absent values. threshold is the minimum neighbourhood size.
func ParseParams(q url.Values, defaults domain.Params) (domain.Params, error) {
	p := defaults

	if v := q.Get("radius"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, domain.InvalidParam("radius", fmt.Sprintf("must be a number, got %q", v))
		}
		p.RadiusMeters = f
	}
	if v := q.Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, domain.InvalidParam("threshold", fmt.Sprintf("must be an integer, got %q", v))
		}
		p.MinPoints = n
	}
	if v := q.Get("k"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, domain.InvalidParam("k", fmt.Sprintf("must be a number, got %q", v))
		}
		p.Sensitivity = f
	}
	if v := q.Get("m"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, domain.InvalidParam("m", fmt.Sprintf("must be an integer, got %q", v))
		}
		p.SmoothingWindow = n
	}

	return p, p.Validate()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSourceUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		// Client went away; nobody reads the response.
		return
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err, "path", r.URL.Path)
		sharedobs.WriteJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	s.logger.Debug("request rejected", "error", err, "path", r.URL.Path, "status", status)
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
