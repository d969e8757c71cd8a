package supabase

import (
	"time"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

// PATCH bodies list every mutable column without omitempty. PostgREST keeps
// the stored value for any key the body leaves out, so a cleared due date,
// goal link or completion time has to travel as null or "".

type taskRow struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Priority        model.Priority   `json:"priority"`
	Status          model.TaskStatus `json:"status"`
	Due             *time.Time       `json:"due"`
	EstimateMinutes int              `json:"estimate_minutes"`
	Tags            model.Tags       `json:"tags"`
	GoalID          string           `json:"goal_id"`
	Project         string           `json:"project"`
	UpdatedAt       time.Time        `json:"updated_at"`
	CompletedAt     *time.Time       `json:"completed_at"`
}

func newTaskRow(t *model.Task) taskRow {
	return taskRow{
		Title:           t.Title,
		Description:     t.Description,
		Priority:        t.Priority,
		Status:          t.Status,
		Due:             t.Due,
		EstimateMinutes: t.EstimateMinutes,
		Tags:            tagsOf(t.Tags),
		GoalID:          t.GoalID,
		Project:         t.Project,
		UpdatedAt:       t.UpdatedAt,
		CompletedAt:     t.CompletedAt,
	}
}

type goalRow struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	TargetDate  *time.Time       `json:"target_date"`
	Status      model.GoalStatus `json:"status"`
	Progress    int              `json:"progress"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func newGoalRow(g *model.Goal) goalRow {
	return goalRow{
		Title:       g.Title,
		Description: g.Description,
		Category:    g.Category,
		TargetDate:  g.TargetDate,
		Status:      g.Status,
		Progress:    g.Progress,
		UpdatedAt:   g.UpdatedAt,
	}
}

type emailRow struct {
	Category  model.Category    `json:"category"`
	Sentiment model.Sentiment   `json:"sentiment"`
	Priority  model.Priority    `json:"priority"`
	Status    model.EmailStatus `json:"status"`
	Draft     string            `json:"draft"`
	Reply     string            `json:"reply"`
	RepliedAt *time.Time        `json:"replied_at"`
}

func newEmailRow(e *model.Email) emailRow {
	return emailRow{
		Category:  e.Category,
		Sentiment: e.Sentiment,
		Priority:  e.Priority,
		Status:    e.Status,
		Draft:     e.Draft,
		Reply:     e.Reply,
		RepliedAt: e.RepliedAt,
	}
}

// tagsOf keeps text[] columns non-null.
func tagsOf(tags model.Tags) model.Tags {
	if tags == nil {
		return model.Tags{}
	}
	return tags
}
