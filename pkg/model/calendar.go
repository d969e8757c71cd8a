package model

import "time"

// Calendar entry kinds.
const (
	EntryTask  = "task"
	EntryGoal  = "goal"
	EntryEvent = "event"
)

// CalendarEntry is a read-only view merging tasks, goals and external events.
type CalendarEntry struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Color  string    `json:"color,omitempty"`
	RefID  string    `json:"ref_id,omitempty"`
	Status string    `json:"status,omitempty"`
}

// Interval is a busy span of time.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}
