// Package service implements the dayboard operations on top of a store.
// Services validate input, stamp ids and times, and keep derived state
// (goal progress, energy awards) consistent across records.
package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/harrisonrobin/dayboard/pkg/logger"
	"github.com/harrisonrobin/dayboard/pkg/store"
)

// Services bundles every service built on one store.
type Services struct {
	Tasks    *TaskService
	Goals    *GoalService
	Energy   *EnergyService
	Schedule *ScheduleService
	Calendar *CalendarService
	Inbox    *InboxService
	Import   *ImportService
}

// Options carries the optional collaborators of New.
type Options struct {
	Calendar      Calendar
	CalendarOwner string
	Overdue       OverdueTable
	Inbox         InboxOptions
	Location      *time.Location
}

// New wires the services together.
func New(st store.Store, log *logrus.Logger, opts Options) *Services {
	if log == nil {
		log = logger.Discard()
	}
	energySvc := NewEnergyService(st, log)
	goals := NewGoalService(st, energySvc, log)
	tasks := NewTaskService(st, goals, energySvc, log)

	var busy BusySource
	if opts.Calendar != nil {
		busy = opts.Calendar
	}
	return &Services{
		Tasks:    tasks,
		Goals:    goals,
		Energy:   energySvc,
		Schedule: NewScheduleService(st, busy, opts.CalendarOwner, opts.Location, log),
		Calendar: NewCalendarService(st, opts.Calendar, opts.Overdue, opts.CalendarOwner, log),
		Inbox:    NewInboxService(st, opts.Inbox, log),
		Import:   NewImportService(st, goals, log),
	}
}

func newID() string {
	return uuid.NewString()
}

func timePtr(t time.Time) *time.Time {
	return &t
}
