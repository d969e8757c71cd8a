package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/energy"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/overdue"
	"github.com/harrisonrobin/dayboard/pkg/store"
	"github.com/harrisonrobin/dayboard/pkg/util"
)

// Calendar is the external calendar tasks are mirrored into. It is
// implemented by *google.CalendarClient.
type Calendar interface {
	BusySource
	Events(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error)
	SyncEvent(ctx context.Context, task *model.Task) (*calendar.Event, error)
	PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error)
	DeleteTaskEvent(ctx context.Context, taskID string) error
	TaskIDs() []string
	Save() error
}

// OverdueTable tracks mirrored tasks whose due time is still ahead. It is
// implemented by *overdue.Table.
type OverdueTable interface {
	Update(e overdue.Entry)
	Remove(taskID string)
	Sweep(now time.Time) []overdue.Entry
	Save() error
}

// SyncReport counts what a Sync did.
type SyncReport struct {
	Synced  int `json:"synced"`
	Removed int `json:"removed"`
	Swept   int `json:"swept"`
	Failed  int `json:"failed"`
}

// CalendarService merges tasks, goals and calendar events into one view and
// mirrors the owner's tasks into the calendar.
type CalendarService struct {
	store   store.Store
	cal     Calendar
	overdue OverdueTable
	owner   string
	log     *logrus.Logger
	now     func() time.Time
}

// NewCalendarService builds the service. cal and table may be nil; owner is
// the user whose tasks are mirrored.
func NewCalendarService(st store.Store, cal Calendar, table OverdueTable, owner string, log *logrus.Logger) *CalendarService {
	return &CalendarService{store: st, cal: cal, overdue: table, owner: owner, log: log, now: time.Now}
}

func (s *CalendarService) Configured() bool {
	return s.cal != nil
}

func (s *CalendarService) Owner() string {
	return s.owner
}

// Entries returns the user's dated tasks, goal targets and, when a calendar
// is configured, its events overlapping [from, to), ordered by start.
func (s *CalendarService) Entries(ctx context.Context, userID string, from, to time.Time) ([]model.CalendarEntry, error) {
	if !to.After(from) {
		return nil, apperr.Invalid("to must be after from")
	}
	window := model.Interval{Start: from, End: to}
	now := s.now()
	entries := []model.CalendarEntry{}

	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	for i := range tasks {
		t := &tasks[i]
		start, end, err := util.TaskSpan(t, now)
		if err != nil || !window.Overlaps(model.Interval{Start: start, End: end}) {
			continue
		}
		entries = append(entries, model.CalendarEntry{
			ID:     "task:" + t.ID,
			Kind:   model.EntryTask,
			Title:  util.Summary(t, now),
			Start:  start,
			End:    end,
			RefID:  t.ID,
			Status: string(t.Status),
		})
	}

	goals, err := s.store.ListGoals(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	for i := range goals {
		g := &goals[i]
		if g.TargetDate == nil {
			continue
		}
		y, m, d := g.TargetDate.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, g.TargetDate.Location())
		end := start.AddDate(0, 0, 1)
		if !window.Overlaps(model.Interval{Start: start, End: end}) {
			continue
		}
		entries = append(entries, model.CalendarEntry{
			ID:     "goal:" + g.ID,
			Kind:   model.EntryGoal,
			Title:  g.Title,
			Start:  start,
			End:    end,
			Color:  goalColor(g.Progress),
			RefID:  g.ID,
			Status: string(g.Status),
		})
	}

	if s.cal != nil && userID == s.owner {
		events, err := s.cal.Events(ctx, from, to)
		if err != nil {
			s.log.WithError(err).Warn("could not read calendar events")
		} else {
			entries = append(entries, events...)
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Start.Equal(entries[j].Start) {
			return entries[i].Start.Before(entries[j].Start)
		}
		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind < entries[j].Kind
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// goalColor walks the colour scale with progress: 0% Red up to 100% Violet.
func goalColor(progress int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return energy.Levels[progress*(len(energy.Levels)-1)/100].Hex
}

// Sync mirrors the owner's tasks into the calendar. Overdue entries are swept
// first, then every dated task is created or patched, and events of tasks
// that no longer exist or lost their dates are removed.
func (s *CalendarService) Sync(ctx context.Context) (*SyncReport, error) {
	if s.cal == nil {
		return nil, apperr.Unavailable("calendar is not configured", nil)
	}
	report := &SyncReport{}

	swept, err := s.Sweep(ctx)
	if err != nil {
		s.log.WithError(err).Warn("overdue sweep failed")
	}
	report.Swept = swept

	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{UserID: s.owner})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	now := s.now()
	live := make(map[string]bool, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if _, _, err := util.TaskSpan(t, now); err != nil {
			continue
		}
		live[t.ID] = true
		event, err := s.cal.SyncEvent(ctx, t)
		if err != nil {
			report.Failed++
			s.log.WithError(err).WithField("task_id", t.ID).Warn("error syncing event")
			continue
		}
		report.Synced++
		s.track(t, event)
	}

	for _, id := range s.cal.TaskIDs() {
		if live[id] {
			continue
		}
		if err := s.cal.DeleteTaskEvent(ctx, id); err != nil {
			report.Failed++
			s.log.WithError(err).WithField("task_id", id).Warn("error deleting event")
			continue
		}
		report.Removed++
		if s.overdue != nil {
			s.overdue.Remove(id)
		}
	}

	if err := s.save(); err != nil {
		s.log.WithError(err).Warn("could not persist calendar state")
	}
	return report, nil
}

// track keeps open tasks with a future due time in the overdue table.
func (s *CalendarService) track(t *model.Task, event *calendar.Event) {
	if s.overdue == nil {
		return
	}
	if t.IsCompleted() || t.Status == model.StatusInProgress || t.Due == nil || !t.Due.After(s.now()) || event == nil {
		s.overdue.Remove(t.ID)
		return
	}
	s.overdue.Update(overdue.Entry{
		TaskID:  t.ID,
		UserID:  t.UserID,
		GCalID:  event.Id,
		Summary: t.Title,
		Due:     *t.Due,
	})
}

// Sweep marks the events of tasks that passed their due time as overdue and
// returns how many were patched.
func (s *CalendarService) Sweep(ctx context.Context) (int, error) {
	if s.cal == nil || s.overdue == nil {
		return 0, nil
	}
	patched := 0
	for _, e := range s.overdue.Sweep(s.now()) {
		patch := &calendar.Event{Summary: "! " + e.Summary}
		if _, err := s.cal.PatchEvent(ctx, e.GCalID, patch); err != nil {
			s.log.WithError(err).WithField("event_id", e.GCalID).Warn("sweep: error patching event")
			continue
		}
		patched++
	}
	return patched, s.overdue.Save()
}

// Forget drops the mirror of a deleted task.
func (s *CalendarService) Forget(ctx context.Context, taskID string) error {
	if s.cal == nil {
		return nil
	}
	if s.overdue != nil {
		s.overdue.Remove(taskID)
	}
	if err := s.cal.DeleteTaskEvent(ctx, taskID); err != nil {
		return fmt.Errorf("delete task event: %w", err)
	}
	return s.save()
}

func (s *CalendarService) save() error {
	var errs []error
	errs = append(errs, s.cal.Save())
	if s.overdue != nil {
		errs = append(errs, s.overdue.Save())
	}
	return errors.Join(errs...)
}
