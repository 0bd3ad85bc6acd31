package enums

import (
	"fmt"
	"strings"
)

// OccupancyStatus tells whether a pallet currently holds inventory.
type OccupancyStatus string

const (
	OccupancyStatusOccupied OccupancyStatus = "Occupied"
	OccupancyStatusEmpty    OccupancyStatus = "Empty"
)

const (
	occupiedMark = "✅"
	emptyMark    = "❌"
)

func (o OccupancyStatus) IsValid() bool {
	return o == OccupancyStatusOccupied || o == OccupancyStatusEmpty
}

// Decorated returns the label with the marker the warehouse sheets display.
func (o OccupancyStatus) Decorated() string {
	switch o {
	case OccupancyStatusOccupied:
		return occupiedMark + " " + string(o)
	case OccupancyStatusEmpty:
		return emptyMark + " " + string(o)
	}
	return string(o)
}

// ParseOccupancyStatus accepts both plain and decorated labels. Blank input yields "".
func ParseOccupancyStatus(value string) (OccupancyStatus, error) {
	trimmed := strings.TrimSpace(value)
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, occupiedMark))
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, emptyMark))
	if trimmed == "" {
		return "", nil
	}
	for _, candidate := range []OccupancyStatus{OccupancyStatusOccupied, OccupancyStatusEmpty} {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return OccupancyStatus(trimmed), fmt.Errorf("invalid occupancy status %q", value)
}
