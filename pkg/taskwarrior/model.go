package taskwarrior

import (
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/util"
)

const (
	PENDING   = "pending"
	COMPLETED = "completed"
	WAITING   = "waiting"
	DELETED   = "deleted"
	RECURRING = "recurring"
)

type CustomTime struct {
	time.Time
}

const taskwarriorTimeLayout = "20060102T150405Z" // YYYYMMDDTHHMMSSZ, always UTC

// UnmarshalJSON implements the json.Unmarshaler interface for CustomTime.
func (ct *CustomTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		ct.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(taskwarriorTimeLayout, s)
	if err != nil {
		return fmt.Errorf("failed to parse Taskwarrior time string '%s': %w", s, err)
	}
	ct.Time = t
	return nil
}

// MarshalJSON implements the json.Marshaler interface for CustomTime.
func (ct CustomTime) MarshalJSON() ([]byte, error) {
	if ct.Time.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + ct.Time.Format(taskwarriorTimeLayout) + `"`), nil
}

func (ct *CustomTime) set() bool {
	return ct != nil && !ct.IsZero()
}

type Annotation struct {
	Description string      `json:"description"`
	Entry       *CustomTime `json:"entry"`
}

// Task is one record of `task export`. Est is the estimate UDA (ISO 8601).
type Task struct {
	UUID        string       `json:"uuid"`
	Description string       `json:"description"`
	Due         *CustomTime  `json:"due,omitempty"`
	Scheduled   *CustomTime  `json:"scheduled,omitempty"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority,omitempty"`
	Project     string       `json:"project,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Entry       *CustomTime  `json:"entry,omitempty"`
	Modified    *CustomTime  `json:"modified,omitempty"`
	Start       *CustomTime  `json:"start,omitempty"`
	End         *CustomTime  `json:"end,omitempty"`
	Est         string       `json:"est,omitempty"`
}

// Importable reports whether the task maps onto a dayboard task. Deleted and
// recurring template records do not.
func (t *Task) Importable() bool {
	return t.UUID != "" && t.Status != DELETED && t.Status != RECURRING
}

// ToModel maps the Taskwarrior record onto a dayboard task owned by userID.
// Scheduled stands in for due when no due date is set.
func (t *Task) ToModel(userID string) model.Task {
	out := model.Task{
		UserID:     userID,
		Title:      t.Description,
		Priority:   priority(t.Priority),
		Status:     status(t),
		Project:    t.Project,
		Source:     model.SourceTaskwarrior,
		ExternalID: t.UUID,
	}
	for _, tag := range t.Tags {
		if tag != "" && !strings.Contains(tag, ",") {
			out.Tags = append(out.Tags, tag)
		}
	}
	if t.Due.set() {
		due := t.Due.Time
		out.Due = &due
	} else if t.Scheduled.set() {
		due := t.Scheduled.Time
		out.Due = &due
	}
	if est, err := util.ParseDuration(t.Est); err == nil {
		out.EstimateMinutes = int(est / time.Minute)
	}
	if t.Status == COMPLETED && t.End.set() {
		end := t.End.Time
		out.CompletedAt = &end
	}
	if t.Entry.set() {
		out.CreatedAt = t.Entry.Time
	}
	if t.Modified.set() {
		out.UpdatedAt = t.Modified.Time
	}

	var notes []string
	for _, ann := range t.Annotations {
		notes = append(notes, "‣ "+ann.Description)
	}
	out.Description = strings.Join(notes, "\n")
	return out
}

func priority(p string) model.Priority {
	switch strings.ToUpper(p) {
	case "H":
		return model.PriorityHigh
	case "L":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

func status(t *Task) model.TaskStatus {
	switch {
	case t.Status == COMPLETED:
		return model.StatusCompleted
	case t.Start.set():
		return model.StatusInProgress
	default:
		return model.StatusTodo
	}
}
