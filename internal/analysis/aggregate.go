// Package analysis turns clusters of incidents into risk zones: centroid and
// category summary, hour-of-day histogram and danger slot detection.
package analysis

import (
	"github.com/paulmach/orb"

	"github.com/couchcryptid/incident-risk-zones/internal/domain"
)

// Summary is the spatial and categorical aggregate of one cluster.
type Summary struct {
	Lat              float64
	Lng              float64
	Count            int
	CategoryCounts   domain.CategoryCounts
	DominantCategory string
	Bounds           domain.Bounds
}

// Aggregate summarises the incidents at the given member indices. Members
// are expected in input order; the dominant category tie-break depends on it.
//
// The centroid is the arithmetic mean of latitudes and longitudes taken
// independently. This is adequate for zones a few hundred meters wide but is
// not corrected near the antimeridian or the poles.
func Aggregate(incidents []domain.Incident, members []int) Summary {
	s := Summary{Count: len(members)}
	if len(members) == 0 {
		return s
	}

	var sumLat, sumLng float64
	mp := make(orb.MultiPoint, 0, len(members))
	for _, idx := range members {
		inc := incidents[idx]
		sumLat += inc.Latitude
		sumLng += inc.Longitude
		s.CategoryCounts.Add(inc.CategoryKey())
		mp = append(mp, orb.Point{inc.Longitude, inc.Latitude})
	}

	n := float64(len(members))
	s.Lat = sumLat / n
	s.Lng = sumLng / n
	s.DominantCategory, _ = s.CategoryCounts.Dominant()

	b := mp.Bound()
	s.Bounds = domain.Bounds{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
	return s
}

// BuildHourHistogram counts members per hour of day. Members without an hour,
// or with one outside 0–23, are skipped.
func BuildHourHistogram(incidents []domain.Incident, members []int) domain.HourHistogram {
	var h domain.HourHistogram
	for _, idx := range members {
		hour := incidents[idx].Hour
		if hour == nil || *hour < 0 || *hour >= domain.HoursPerDay {
			continue
		}
		h[*hour]++
	}
	return h
}
