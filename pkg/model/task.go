package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task sources.
const (
	SourceAPI         = "api"
	SourceTaskwarrior = "taskwarrior"
	SourceOrgmode     = "orgmode"
)

// Tags is stored as a comma separated column.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	return strings.Join(t, ","), nil
}

func (t *Tags) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*t = nil
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Tags", src)
	}
	if s == "" {
		*t = nil
		return nil
	}
	*t = strings.Split(s, ",")
	return nil
}

func (t Tags) Has(tag string) bool {
	for _, v := range t {
		if strings.EqualFold(v, tag) {
			return true
		}
	}
	return false
}

// Task is a user-entered productivity record.
type Task struct {
	ID              string     `json:"id" db:"id"`
	UserID          string     `json:"user_id" db:"user_id"`
	Title           string     `json:"title" db:"title"`
	Description     string     `json:"description" db:"description"`
	Priority        Priority   `json:"priority" db:"priority"`
	Status          TaskStatus `json:"status" db:"status"`
	Due             *time.Time `json:"due,omitempty" db:"due"`
	EstimateMinutes int        `json:"estimate_minutes" db:"estimate_minutes"`
	Tags            Tags       `json:"tags" db:"tags"`
	GoalID          string     `json:"goal_id,omitempty" db:"goal_id"`
	Project         string     `json:"project,omitempty" db:"project"`
	Source          string     `json:"source" db:"source"`
	ExternalID      string     `json:"external_id,omitempty" db:"external_id"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

func (t *Task) Estimate() time.Duration {
	return time.Duration(t.EstimateMinutes) * time.Minute
}

func (t *Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsOverdue reports whether an open task is past its due time.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.IsCompleted() && t.Due != nil && t.Due.Before(now)
}

// Normalize fills defaults for fields the caller left empty.
func (t *Task) Normalize() {
	t.Title = strings.TrimSpace(t.Title)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if t.Source == "" {
		t.Source = SourceAPI
	}
}

func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return apperr.Invalid("title is required")
	}
	if len(t.Title) > 200 {
		return apperr.Invalid("title must be at most 200 characters")
	}
	if !t.Priority.Valid() {
		return apperr.Invalid("invalid priority %q", t.Priority)
	}
	if !t.Status.Valid() {
		return apperr.Invalid("invalid status %q", t.Status)
	}
	if t.EstimateMinutes < 0 {
		return apperr.Invalid("estimate must not be negative")
	}
	for _, tag := range t.Tags {
		if strings.Contains(tag, ",") {
			return apperr.Invalid("tag %q must not contain a comma", tag)
		}
	}
	return nil
}
