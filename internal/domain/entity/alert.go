package entity

import (
	"time"
)

// Severity is the urgency level of an alert.
type Severity string

// Severity levels, most urgent first in rank order.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// severityRanks orders severities for feed sorting. Lower rank sorts first.
var severityRanks = map[Severity]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// Rank returns the sort rank of the severity. Unknown severities rank after
// every known level so malformed records sink to the bottom of a feed.
func (s Severity) Rank() int {
	if rank, ok := severityRanks[s]; ok {
		return rank
	}

	return len(severityRanks)
}

// Valid reports whether the severity is one of the known levels.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]

	return ok
}

// Alert is a time-bounded, geolocated emergency notice. Created by an
// administrative actor, deactivated by an explicit toggle or the expiry sweep,
// and retained for audit. The core never hard-deletes an alert.
type Alert struct {
	ID          string             `json:"id" firestore:"-"`
	Title       string             `json:"title" firestore:"title"`
	Description string             `json:"description" firestore:"description"`
	Category    string             `json:"category" firestore:"category"`
	Severity    Severity           `json:"severity" firestore:"severity"`
	Location    LocationDescriptor `json:"location" firestore:"location"`
	CreatedAt   time.Time          `json:"created_at" firestore:"createdAt"`
	ExpiresAt   time.Time          `json:"expires_at" firestore:"expiresAt"`
	IsActive    bool               `json:"is_active" firestore:"isActive"`
}

// Expired reports whether the alert's active window has passed at the given
// instant.
func (a *Alert) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
