package model

import (
	"time"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
)

// Energy entry sources.
const (
	EnergySourceTask   = "task"
	EnergySourceGoal   = "goal"
	EnergySourceManual = "manual"
	EnergySourceStreak = "streak"
)

// EnergyEntry is one award of points; the running total is the sum of all
// entries for a user.
type EnergyEntry struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Points      int       `json:"points" db:"points"`
	Source      string    `json:"source" db:"source"`
	ReferenceID string    `json:"reference_id,omitempty" db:"reference_id"`
	Note        string    `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (e *EnergyEntry) Validate() error {
	if e.Points <= 0 {
		return apperr.Invalid("points must be positive")
	}
	switch e.Source {
	case EnergySourceTask, EnergySourceGoal, EnergySourceManual, EnergySourceStreak:
	default:
		return apperr.Invalid("invalid energy source %q", e.Source)
	}
	return nil
}
