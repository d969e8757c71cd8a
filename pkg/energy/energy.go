// Package energy maps accumulated points onto the seven colour ROYGBIV scale.
// Every LevelSize points advance one colour; after Violet the scale wraps to
// Red and a new cycle begins.
package energy

import "github.com/harrisonrobin/dayboard/pkg/model"

const (
	LevelSize = 100
	MaxManual = 100
)

type Level struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

var Levels = [7]Level{
	{Name: "Red", Hex: "#FF0000"},
	{Name: "Orange", Hex: "#FF7F00"},
	{Name: "Yellow", Hex: "#FFFF00"},
	{Name: "Green", Hex: "#00FF00"},
	{Name: "Blue", Hex: "#0000FF"},
	{Name: "Indigo", Hex: "#4B0082"},
	{Name: "Violet", Hex: "#9400D3"},
}

var cycleSize = LevelSize * len(Levels)

// Status is the user's position on the scale.
type Status struct {
	Total        int   `json:"total"`
	Level        Level `json:"level"`
	LevelIndex   int   `json:"level_index"`
	Cycle        int   `json:"cycle"`
	Percent      int   `json:"percent"`
	PointsToNext int   `json:"points_to_next"`
	Next         Level `json:"next"`
}

// Progress computes the Status for a total. Negative totals are treated as 0.
func Progress(total int) Status {
	if total < 0 {
		total = 0
	}
	idx := (total / LevelSize) % len(Levels)
	into := total % LevelSize
	return Status{
		Total:        total,
		Level:        Levels[idx],
		LevelIndex:   idx,
		Cycle:        total/cycleSize + 1,
		Percent:      into * 100 / LevelSize,
		PointsToNext: LevelSize - into,
		Next:         Levels[(idx+1)%len(Levels)],
	}
}

// TaskPoints is the award for completing a task of the given priority.
func TaskPoints(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 30
	case model.PriorityMedium:
		return 20
	default:
		return 10
	}
}

// GoalPoints is the award for completing a goal.
const GoalPoints = 50

// Total sums the points of entries.
func Total(entries []model.EnergyEntry) int {
	sum := 0
	for _, e := range entries {
		sum += e.Points
	}
	return sum
}
