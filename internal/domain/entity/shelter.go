package entity

import (
	"time"
)

// ShelterRecord is one entry of the shelter directory. Owned by the remote
// document store; the local cache only ever holds a read-only, time-stamped
// copy.
type ShelterRecord struct {
	ID               string             `json:"id" firestore:"-"`
	Name             string             `json:"name" firestore:"name"`
	Address          string             `json:"address" firestore:"address"`
	Location         LocationDescriptor `json:"location" firestore:"location"`
	Capacity         int                `json:"capacity" firestore:"capacity"`
	CurrentOccupancy int                `json:"current_occupancy" firestore:"currentOccupancy"`
	Amenities        []string           `json:"amenities" firestore:"amenities"`
	IsActive         bool               `json:"is_active" firestore:"isActive"`
}

// CacheEnvelope wraps a cached shelter snapshot with the instant it was taken.
// A read must check the envelope age against the TTL before trusting the
// snapshot. Exactly one envelope exists per cached collection.
type CacheEnvelope struct {
	Snapshot []*ShelterRecord `json:"snapshot"`
	CachedAt time.Time        `json:"cached_at"`
}

// Fresh reports whether the envelope is still within its time-to-live at the
// given instant.
func (e *CacheEnvelope) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.CachedAt) <= ttl
}
