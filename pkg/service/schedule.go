package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/schedule"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

// BusySource reports the time already taken on a calendar.
type BusySource interface {
	Busy(ctx context.Context, from, to time.Time) ([]model.Interval, error)
}

type ScheduleService struct {
	store store.TaskStore
	busy  BusySource
	owner string
	opts  schedule.Options
	loc   *time.Location
	log   *logrus.Logger
	now   func() time.Time
}

// NewScheduleService plans in loc (time.Local when nil). busy may be nil; it
// belongs to owner and only shapes owner's plans.
func NewScheduleService(st store.TaskStore, busy BusySource, owner string, loc *time.Location, log *logrus.Logger) *ScheduleService {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleService{
		store: st,
		busy:  busy,
		owner: owner,
		opts:  schedule.DefaultOptions(),
		loc:   loc,
		log:   log,
		now:   time.Now,
	}
}

func (s *ScheduleService) SetOptions(opts schedule.Options) {
	s.opts = opts
}

func (s *ScheduleService) Location() *time.Location {
	return s.loc
}

// Daily packs the user's open tasks into day around busy calendar time. Only
// the calendar owner's plan reads the calendar, and when it cannot be read the
// plan is made without it.
func (s *ScheduleService) Daily(ctx context.Context, userID string, day time.Time) (*schedule.DailySchedule, error) {
	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	open := tasks[:0]
	for _, t := range tasks {
		if !t.IsCompleted() {
			open = append(open, t)
		}
	}

	day = day.In(s.loc)
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	to := from.AddDate(0, 0, 1)

	var busy []model.Interval
	if s.busy != nil && userID == s.owner {
		busy, err = s.busy.Busy(ctx, from, to)
		if err != nil {
			s.log.WithError(err).Warn("could not read calendar, planning without busy time")
			busy = nil
		}
	}

	plan := schedule.Plan(open, busy, from, s.now(), s.opts)
	return &plan, nil
}
