package entity

import (
	"strings"
)

// Located is implemented by every entity carrying a location descriptor, so
// the operator surface can narrow any collection with the same predicate.
type Located interface {
	Descriptor() LocationDescriptor
}

// Descriptor implements Located for alerts.
func (a *Alert) Descriptor() LocationDescriptor {
	return a.Location
}

// Descriptor implements Located for shelters.
func (s *ShelterRecord) Descriptor() LocationDescriptor {
	return s.Location
}

// Descriptor implements Located for emergency messages. A message without a
// location yields a zero descriptor, which matches no non-empty criteria.
func (m *EmergencyMessage) Descriptor() LocationDescriptor {
	if m.Location == nil {
		return LocationDescriptor{}
	}

	return *m.Location
}

// LocationCriteria narrows a collection by the two-level administrative
// hierarchy. SubRegion only further restricts a result, never widens it.
type LocationCriteria struct {
	Region    string `json:"region,omitempty"`
	SubRegion string `json:"sub_region,omitempty"`
}

// Empty reports whether no criteria are set.
func (c LocationCriteria) Empty() bool {
	return strings.TrimSpace(c.Region) == "" && strings.TrimSpace(c.SubRegion) == ""
}

// canonicalMatch compares hierarchy values on their trimmed, case-folded
// forms so inconsistent capitalization at write time does not silently
// exclude records.
func canonicalMatch(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FilterByLocation keeps the items whose descriptor matches the criteria.
// Empty criteria return the input unchanged for every entity type. Region and
// SubRegion combine as a logical AND.
func FilterByLocation[T Located](items []T, crit LocationCriteria) []T {
	if crit.Empty() {
		return items
	}

	kept := make([]T, 0, len(items))
	for _, item := range items {
		desc := item.Descriptor()

		if strings.TrimSpace(crit.Region) != "" && !canonicalMatch(desc.Region, crit.Region) {
			continue
		}
		if strings.TrimSpace(crit.SubRegion) != "" && !canonicalMatch(desc.SubRegion, crit.SubRegion) {
			continue
		}

		kept = append(kept, item)
	}

	return kept
}
