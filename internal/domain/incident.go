package domain

import (
	"fmt"
	"math"
)

// Incident is a single geolocated report supplied by the data layer.
type Incident struct {
	ID        string  `json:"id,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Category  *string `json:"category,omitempty"`
	Hour      *int    `json:"hour,omitempty"` // 0–23, nil when the report has no time
}

// HasHour reports whether the incident carries an hour of day.
func (i Incident) HasHour() bool {
	return i.Hour != nil
}

// CategoryKey returns the category used for counting, substituting
// UnspecifiedCategory when the report has none.
func (i Incident) CategoryKey() string {
	if i.Category == nil {
		return UnspecifiedCategory
	}
	return *i.Category
}

// Validate checks that the position is a finite WGS-84 coordinate and that
// the hour, when present, is within 0–23.
func (i Incident) Validate() error {
	if math.IsNaN(i.Latitude) || math.IsInf(i.Latitude, 0) || i.Latitude < -90 || i.Latitude > 90 {
		return invalidIncident("lat", fmt.Sprintf("must be within [-90, 90], got %v", i.Latitude))
	}
	if math.IsNaN(i.Longitude) || math.IsInf(i.Longitude, 0) || i.Longitude < -180 || i.Longitude > 180 {
		return invalidIncident("lng", fmt.Sprintf("must be within [-180, 180], got %v", i.Longitude))
	}
	if i.Hour != nil && (*i.Hour < 0 || *i.Hour > 23) {
		return invalidIncident("hour", fmt.Sprintf("must be within [0, 23], got %d", *i.Hour))
	}
	return nil
}

// NewIncident builds an incident. Pass an empty category or a negative hour
// to leave the corresponding field unset.
func NewIncident(lat, lng float64, category string, hour int) Incident {
	inc := Incident{Latitude: lat, Longitude: lng}
	if category != "" {
		inc.Category = &category
	}
	if hour >= 0 {
		inc.Hour = &hour
	}
	return inc
}
