package domain

import (
	"fmt"
	"math"
)

// Analysis defaults, matching the reference behaviour of the clusters endpoint.
const (
	DefaultRadiusMeters    = 75.0
	DefaultMinPoints       = 5
	DefaultSensitivity     = 1.0
	DefaultSmoothingWindow = 1
)

// Params controls clustering and danger slot detection.
type Params struct {
	RadiusMeters    float64 `json:"radius_m"`
	MinPoints       int     `json:"min_pts"`
	Sensitivity     float64 `json:"k"` // threshold = mean + k*stddev
	SmoothingWindow int     `json:"m"` // circular moving-average half-window
}

// DefaultParams returns radius 75 m, min_pts 5, k 1.0 and m 1.
func DefaultParams() Params {
	return Params{
		RadiusMeters:    DefaultRadiusMeters,
		MinPoints:       DefaultMinPoints,
		Sensitivity:     DefaultSensitivity,
		SmoothingWindow: DefaultSmoothingWindow,
	}
}

// Validate rejects parameters the analysis cannot run with. The smoothing
// half-window is capped at 23; wider windows only wrap the day again.
func (p Params) Validate() error {
	if math.IsNaN(p.RadiusMeters) || math.IsInf(p.RadiusMeters, 0) || p.RadiusMeters <= 0 {
		return InvalidParam("radius_m", fmt.Sprintf("must be a positive number, got %v", p.RadiusMeters))
	}
	if p.MinPoints < 1 {
		return InvalidParam("min_pts", fmt.Sprintf("must be a positive integer, got %d", p.MinPoints))
	}
	if math.IsNaN(p.Sensitivity) || math.IsInf(p.Sensitivity, 0) {
		return InvalidParam("k", fmt.Sprintf("must be a finite number, got %v", p.Sensitivity))
	}
	if p.SmoothingWindow < 0 || p.SmoothingWindow > 23 {
		return InvalidParam("m", fmt.Sprintf("must be within [0, 23], got %d", p.SmoothingWindow))
	}
	return nil
}
