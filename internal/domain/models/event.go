package models

import "time"

// NoEventDate marks a change point with no event inside the search window.
const NoEventDate = "N/A"

// Event is a dated market event considered for change-point attribution.
type Event struct {
	Date        time.Time
	Description string
}

// Association links a change point to the first event found inside the search
// window, or carries the sentinel values when none qualified.
type Association struct {
	ChangePointDate  time.Time
	EventDate        string // ISO date, or NoEventDate
	EventDescription string
	Matched          bool
}
