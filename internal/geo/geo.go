// Package geo provides great-circle distance math for geofencing.
package geo

import (
	"math"

	"beacon/internal/domain/entity"

	"github.com/paulmach/orb"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two coordinates in
// kilometers using the haversine formula. Pure and total.
func DistanceKm(a, b entity.Coordinate) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// WithinRadius reports whether b lies within radiusKm of a.
func WithinRadius(a, b entity.Coordinate, radiusKm float64) bool {
	return DistanceKm(a, b) <= radiusKm
}

// Bound returns an axis-aligned bounding box that fully contains the circle
// of radiusKm around center. Used as a cheap pre-filter before exact
// haversine evaluation; points outside the bound cannot be inside the circle.
func Bound(center entity.Coordinate, radiusKm float64) orb.Bound {
	// 1 degree of latitude is ~111 km; longitude degrees shrink with cos(lat).
	dLat := radiusKm / 111.0

	cosLat := math.Cos(center.Latitude * math.Pi / 180)
	dLng := 180.0 // Degenerate near the poles: keep the full longitude span.
	if cosLat > 1e-6 {
		dLng = radiusKm / (111.0 * cosLat)
	}

	return orb.Bound{
		Min: orb.Point{center.Longitude - dLng, center.Latitude - dLat},
		Max: orb.Point{center.Longitude + dLng, center.Latitude + dLat},
	}
}
