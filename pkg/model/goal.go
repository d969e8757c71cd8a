package model

import (
	"strings"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
)

type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalArchived  GoalStatus = "archived"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalCompleted, GoalArchived:
		return true
	}
	return false
}

type Goal struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Category    string     `json:"category" db:"category"`
	TargetDate  *time.Time `json:"target_date,omitempty" db:"target_date"`
	Status      GoalStatus `json:"status" db:"status"`
	Progress    int        `json:"progress" db:"progress"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

func (g *Goal) Normalize() {
	g.Title = strings.TrimSpace(g.Title)
	if g.Status == "" {
		g.Status = GoalActive
	}
	if g.Category == "" {
		g.Category = "personal"
	}
}

func (g *Goal) Validate() error {
	if g.Title == "" {
		return apperr.Invalid("title is required")
	}
	if !g.Status.Valid() {
		return apperr.Invalid("invalid status %q", g.Status)
	}
	if g.Progress < 0 || g.Progress > 100 {
		return apperr.Invalid("progress must be between 0 and 100")
	}
	return nil
}
