// Package geo provides great-circle distance on a spherical Earth.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for every conversion
// between angles and meters.
const EarthRadiusMeters = 6371000.0

// Point is a WGS-84 position in degrees.
type Point struct {
	Lat float64
	Lng float64
}

// CentralAngle returns the haversine central angle between a and b in
// radians.
//
// The haversine term is clamped to [0, 1] before the square roots, so
// floating point error on near-duplicate or antipodal points never yields NaN.
func CentralAngle(a, b Point) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := degreesToRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	h = math.Min(1, math.Max(0, h))

	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	return EarthRadiusMeters * CentralAngle(a, b)
}

// MetersToRadians converts a surface distance to a central angle.
func MetersToRadians(m float64) float64 {
	return m / EarthRadiusMeters
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
