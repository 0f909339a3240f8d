package domain

import "time"

// MappingStats holds counters for one mapping within one cycle.
type MappingStats struct {
	SourceID      string
	DestinationID string
	Fetched       int
	Duplicates    int
	Ineligible    int
	Sent          int
	Failed        int
	Err           error
}

// CycleStats holds statistics about a single tick.
type CycleStats struct {
	CycleID  string
	Tick     int64
	Gated    bool
	Mappings []MappingStats
	Duration time.Duration
}

// Sent returns the number of successful dispatches across all mappings.
func (s *CycleStats) Sent() int {
	total := 0
	for _, m := range s.Mappings {
		total += m.Sent
	}
	return total
}

// Delivery describes an item dispatched by an immediate send.
type Delivery struct {
	Item        ContentItem
	Media       ClassifiedMedia
	Destination Destination
}
