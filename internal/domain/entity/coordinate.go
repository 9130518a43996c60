// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/paulmach/orb"
)

// Coordinate is a geographic position captured from a device or entered by an
// operator. Immutable once captured.
type Coordinate struct {
	Latitude   float64    `json:"latitude" firestore:"latitude"`               // The geographic latitude in degrees.
	Longitude  float64    `json:"longitude" firestore:"longitude"`             // The geographic longitude in degrees.
	AccuracyM  float64    `json:"accuracy_m,omitempty" firestore:"accuracyM"`  // Optional horizontal accuracy in meters.
	CapturedAt *time.Time `json:"captured_at,omitempty" firestore:"capturedAt"` // Optional timestamp of when the position was captured.
}

// Point converts the coordinate to an orb point (lng, lat order).
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Longitude, c.Latitude}
}

// LocationDescriptor is a coordinate plus the two-level administrative
// hierarchy used by the operator surface to narrow collections.
type LocationDescriptor struct {
	Coordinate

	Region    string `json:"region,omitempty" firestore:"region"`       // First-level unit, e.g. a state.
	SubRegion string `json:"sub_region,omitempty" firestore:"subRegion"` // Second-level unit, e.g. a district.
	Address   string `json:"address,omitempty" firestore:"address"`     // Free-text address.
}
