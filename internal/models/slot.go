package models

import "time"

// Interval is a half-open [Start, End) range of minutes since midnight. It is
// used transiently by the availability engine and never persisted.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Empty reports whether the interval covers no time at all.
func (iv Interval) Empty() bool {
	return iv.End <= iv.Start
}

// SlotStatus marks a generated slot as free or occupied.
type SlotStatus string

const (
	SlotFree     SlotStatus = "free"
	SlotOccupied SlotStatus = "occupied"
)

// Slot is a generated, fixed-length bookable window. Only free slots are
// emitted by the generator; occupied time shows up as an absence.
type Slot struct {
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Status     SlotStatus `json:"status"`
	OccupiedBy *string    `json:"occupied_by,omitempty"`
}

// AvailabilityResult reports, for one staff member and date, whether the requested
// time range is bookable and every reason it is not.
type AvailabilityResult struct {
	StaffID   string    `json:"staff_id"`
	Date      time.Time `json:"date"`
	Available bool      `json:"available"`
	Conflicts []string  `json:"conflicts,omitempty"`
}
