// Package geojson renders risk zones as a GeoJSON FeatureCollection.
package geojson

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/incident-risk-zones/internal/domain"
)

// FromZones renders each zone as a Point feature at its centroid with the
// zone fields as properties and the member extent as bbox.
func FromZones(zones []domain.RiskZone) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, z := range zones {
		f := geojson.NewFeature(orb.Point{z.Lng, z.Lat})
		f.ID = z.ID
		f.BBox = geojson.NewBBox(orb.Bound{
			Min: orb.Point{z.Bounds[0], z.Bounds[1]},
			Max: orb.Point{z.Bounds[2], z.Bounds[3]},
		})
		f.Properties["count"] = z.Count
		f.Properties["dominant_category"] = z.DominantCategory
		f.Properties["category_counts"] = z.CategoryCounts
		f.Properties["hour_histogram"] = z.HourHistogram
		f.Properties["danger_slots"] = z.DangerSlots
		fc.Append(f)
	}
	return fc
}
