// Package google mirrors dayboard tasks into a Google Calendar and reads the
// calendar's other events back as busy time.
package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/dayboard/pkg/colors"
	"github.com/harrisonrobin/dayboard/pkg/index"
	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/util"
)

// CalendarClient is a Google Calendar API client.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	colors     *colors.ColorCache
	now        func() time.Time
}

// NewCalendarClient binds srv to calendarID. idx and cc may be nil.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, cc *colors.ColorCache) *CalendarClient {
	if idx != nil {
		idx.Bind(calendarID)
	}
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx, colors: cc, now: time.Now}
}

func (c *CalendarClient) colorFor(task *model.Task) string {
	if c.colors == nil {
		return "1"
	}
	return c.colors.GetColorID(task.Project)
}

// SyncEvent creates the event for task or patches the existing one.
func (c *CalendarClient) SyncEvent(ctx context.Context, task *model.Task) (*calendar.Event, error) {
	event, err := util.ConvertTaskToCalendarEvent(task, c.colorFor(task), c.now())
	if err != nil {
		return nil, err
	}

	var existing *calendar.Event
	if c.index != nil {
		if eventID := c.index.Get(task.ID); eventID != "" {
			existing, err = c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err != nil || existing.Status == "cancelled" {
				existing = nil
			}
		}
	}
	if existing == nil {
		existing, err = c.GetEventByTaskID(ctx, task.ID)
		if err != nil {
			return nil, fmt.Errorf("error searching for event: %w", err)
		}
	}

	if existing != nil {
		patch, err := util.EventNeedsUpdate(existing, event)
		if err != nil {
			return nil, fmt.Errorf("could not compare task with its calendar event: %w", err)
		}
		if patch == nil {
			c.remember(task.ID, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, err
		}
		c.remember(task.ID, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to create event: %w", err)
	}
	c.remember(task.ID, created.Id)
	return created, nil
}

func (c *CalendarClient) remember(taskID, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteEvent deletes an event from the calendar. Missing events are ignored.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	err := c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if isGone(err) {
		return nil
	}
	return err
}

// DeleteTaskEvent removes the event mirroring taskID, if any.
func (c *CalendarClient) DeleteTaskEvent(ctx context.Context, taskID string) error {
	eventID := ""
	if c.index != nil {
		eventID = c.index.Get(taskID)
	}
	if eventID == "" {
		event, err := c.GetEventByTaskID(ctx, taskID)
		if err != nil {
			return err
		}
		if event == nil {
			return nil
		}
		eventID = event.Id
	}
	if err := c.DeleteEvent(ctx, eventID); err != nil {
		return err
	}
	if c.index != nil {
		c.index.Remove(taskID)
	}
	return nil
}

// ListEvents fetches single events overlapping [from, to).
func (c *CalendarClient) ListEvents(ctx context.Context, from, to time.Time) ([]*calendar.Event, error) {
	var items []*calendar.Event
	call := c.srv.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	err := call.Pages(ctx, func(page *calendar.Events) error {
		items = append(items, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	return items, nil
}

// GetEventByTaskID searches for the event carrying taskID in its private
// extended properties.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.TaskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

// Events returns the calendar's own events (not task mirrors) in [from, to).
func (c *CalendarClient) Events(ctx context.Context, from, to time.Time) ([]model.CalendarEntry, error) {
	items, err := c.ListEvents(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var out []model.CalendarEntry
	for _, e := range items {
		if isTaskMirror(e) || e.Status == "cancelled" || e.Transparency == "transparent" {
			continue
		}
		start, end, err := util.EventTimes(e)
		if err != nil {
			continue
		}
		out = append(out, model.CalendarEntry{
			ID:     e.Id,
			Kind:   model.EntryEvent,
			Title:  e.Summary,
			Start:  start,
			End:    end,
			Color:  e.ColorId,
			Status: e.Status,
		})
	}
	return out, nil
}

// Busy returns the intervals taken by events that are not task mirrors.
func (c *CalendarClient) Busy(ctx context.Context, from, to time.Time) ([]model.Interval, error) {
	entries, err := c.Events(ctx, from, to)
	if err != nil {
		return nil, err
	}
	busy := make([]model.Interval, 0, len(entries))
	for _, e := range entries {
		busy = append(busy, model.Interval{Start: e.Start, End: e.End})
	}
	return busy, nil
}

// TaskIDs lists the tasks with a known mirror event.
func (c *CalendarClient) TaskIDs() []string {
	if c.index == nil {
		return nil
	}
	return c.index.TaskIDs()
}

// Save persists the index and color cache.
func (c *CalendarClient) Save() error {
	var errs []error
	if c.index != nil {
		errs = append(errs, c.index.Save())
	}
	if c.colors != nil {
		errs = append(errs, c.colors.Save())
	}
	return errors.Join(errs...)
}

func isTaskMirror(e *calendar.Event) bool {
	if e.ExtendedProperties == nil {
		return false
	}
	_, ok := e.ExtendedProperties.Private[util.TaskIDProperty]
	return ok
}

func isGone(err error) bool {
	var gErr *googleapi.Error
	return errors.As(err, &gErr) && (gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone)
}
