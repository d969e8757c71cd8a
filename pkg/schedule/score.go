// Package schedule ranks open tasks and packs them into a working day.
package schedule

import (
	"sort"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

// Scoring weights.
const (
	weightHigh   = 30
	weightMedium = 20
	weightLow    = 10

	bonusOverdue    = 30
	bonusDueToday   = 20
	bonusDueSoon    = 10 // within 3 days
	bonusDueWeek    = 5  // within 7 days
	bonusInProgress = 5
	bonusGoalLinked = 3
	bonusQuickWin   = 2

	quickWinLimit = 30 * time.Minute
)

// Scored is a task with its priority score.
type Scored struct {
	Task  model.Task `json:"task"`
	Score int        `json:"score"`
}

// Score returns the priority score of task at now. Completed tasks score 0.
func Score(task *model.Task, now time.Time) int {
	if task.IsCompleted() {
		return 0
	}

	score := 0
	switch task.Priority {
	case model.PriorityHigh:
		score += weightHigh
	case model.PriorityMedium:
		score += weightMedium
	default:
		score += weightLow
	}

	if task.Due != nil {
		score += urgency(*task.Due, now)
	}
	if task.Status == model.StatusInProgress {
		score += bonusInProgress
	}
	if task.GoalID != "" {
		score += bonusGoalLinked
	}
	if est := task.Estimate(); est > 0 && est <= quickWinLimit {
		score += bonusQuickWin
	}
	return score
}

// urgency compares calendar days in now's location so "due today" means the
// same day on the user's clock, not within 24h.
func urgency(due, now time.Time) int {
	if due.Before(now) {
		return bonusOverdue
	}
	days := daysBetween(now, due.In(now.Location()))
	switch {
	case days == 0:
		return bonusDueToday
	case days <= 3:
		return bonusDueSoon
	case days <= 7:
		return bonusDueWeek
	}
	return 0
}

func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / 24)
}

// Rank scores every open task and orders them by score desc, then earlier due
// (tasks without a due date last), then creation time, then id.
func Rank(tasks []model.Task, now time.Time) []Scored {
	ranked := make([]Scored, 0, len(tasks))
	for _, t := range tasks {
		if t.IsCompleted() {
			continue
		}
		ranked = append(ranked, Scored{Task: t, Score: Score(&t, now)})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.Task.Due != nil && b.Task.Due == nil:
			return true
		case a.Task.Due == nil && b.Task.Due != nil:
			return false
		case a.Task.Due != nil && !a.Task.Due.Equal(*b.Task.Due):
			return a.Task.Due.Before(*b.Task.Due)
		}
		if !a.Task.CreatedAt.Equal(b.Task.CreatedAt) {
			return a.Task.CreatedAt.Before(b.Task.CreatedAt)
		}
		return a.Task.ID < b.Task.ID
	})
	return ranked
}
