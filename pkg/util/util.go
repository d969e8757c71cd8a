package util

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

// TaskIDProperty is the private extended property linking an event to a task.
const TaskIDProperty = "dayboard_id"

// DefaultDuration is used for tasks without an estimate.
const DefaultDuration = 30 * time.Minute

var isoDuration = regexp.MustCompile(`(\d+)([HMS])`)

// ParseDuration parses an ISO 8601 time duration (PT1H30M) as exported by
// Taskwarrior.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) < 2 || s[0] != 'P' {
		return 0, fmt.Errorf("invalid ISO 8601 duration format: %s", s)
	}
	s = s[1:]
	if len(s) == 0 || s[0] != 'T' {
		return 0, fmt.Errorf("invalid ISO 8601 duration (missing T): P%s", s)
	}
	s = s[1:]

	var total time.Duration
	for _, match := range isoDuration.FindAllStringSubmatch(s, -1) {
		value, _ := strconv.Atoi(match[1])
		switch match[2] {
		case "H":
			total += time.Duration(value) * time.Hour
		case "M":
			total += time.Duration(value) * time.Minute
		case "S":
			total += time.Duration(value) * time.Second
		}
	}
	if total == 0 {
		return 0, fmt.Errorf("invalid ISO 8601 duration: PT%s", s)
	}
	return total, nil
}

// ParseEstimate accepts ISO 8601 (PT1H30M), Go (1h30m), Org effort (1:30)
// or a bare number of minutes.
func ParseEstimate(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return 0, nil
	case strings.HasPrefix(s, "P"):
		return ParseDuration(s)
	case strings.Contains(s, ":"):
		h, m, _ := strings.Cut(s, ":")
		hours, err1 := strconv.Atoi(h)
		mins, err2 := strconv.Atoi(m)
		if err1 != nil || err2 != nil || hours < 0 || mins < 0 || mins > 59 {
			return 0, fmt.Errorf("invalid effort %q", s)
		}
		return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative estimate %q", s)
		}
		return time.Duration(n) * time.Minute, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid estimate %q", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative estimate %q", s)
	}
	return d, nil
}

// EventNeedsUpdate returns a patch holding the fields of target that differ
// from existing, or nil when the event is current.
func EventNeedsUpdate(existing, target *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}

	existingStart, existingEnd, err := EventTimes(existing)
	if err != nil {
		return nil, err
	}
	targetStart, targetEnd, err := EventTimes(target)
	if err != nil {
		return nil, err
	}
	if !existingStart.Equal(targetStart) || !existingEnd.Equal(targetEnd) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

// EventTimes returns the start and end of a timed or all-day event.
func EventTimes(e *calendar.Event) (time.Time, time.Time, error) {
	if e.Start == nil || e.End == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("event %s has no start or end", e.Id)
	}
	start, err := eventTime(e.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := eventTime(e.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func eventTime(t *calendar.EventDateTime) (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	if t.Date != "" {
		loc := time.Local
		if t.TimeZone != "" {
			if l, err := time.LoadLocation(t.TimeZone); err == nil {
				loc = l
			}
		}
		return time.ParseInLocation("2006-01-02", t.Date, loc)
	}
	return time.Time{}, fmt.Errorf("empty event time")
}

// TaskSpan places a task in time: completed tasks end at completion, tasks
// in progress start at their last update, others start at their due time.
func TaskSpan(task *model.Task, now time.Time) (time.Time, time.Time, error) {
	dur := task.Estimate()
	if dur <= 0 {
		dur = DefaultDuration
	}
	switch {
	case task.IsCompleted():
		end := now
		if task.CompletedAt != nil && !task.CompletedAt.IsZero() {
			end = *task.CompletedAt
		}
		return end.Add(-dur), end, nil
	case task.Status == model.StatusInProgress:
		start := task.UpdatedAt
		if start.IsZero() {
			start = now
		}
		return start, start.Add(dur), nil
	case task.Due != nil && !task.Due.IsZero():
		return *task.Due, task.Due.Add(dur), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("task has no date usage (due, started or completed): %s", task.ID)
}

// Summary prefixes the title with the task state: ✓ done, ‣ active, ! overdue.
func Summary(task *model.Task, now time.Time) string {
	prefix := ""
	switch {
	case task.IsCompleted():
		prefix = "✓"
	case task.Status == model.StatusInProgress:
		prefix = "‣"
	case task.IsOverdue(now):
		prefix = "!"
	}
	if prefix == "" {
		return task.Title
	}
	return prefix + " " + task.Title
}

// ConvertTaskToCalendarEvent builds the event mirroring task. colorID is the
// Google Calendar color for the task's project.
func ConvertTaskToCalendarEvent(task *model.Task, colorID string, now time.Time) (*calendar.Event, error) {
	if task == nil {
		return nil, fmt.Errorf("could not convert nil Task")
	}
	start, end, err := TaskSpan(task, now)
	if err != nil {
		return nil, err
	}

	var desc strings.Builder
	if len(task.Tags) > 0 {
		for _, tag := range task.Tags {
			fmt.Fprintf(&desc, "#%s ", tag)
		}
		desc.WriteString("\n\n")
	}
	if task.Description != "" {
		desc.WriteString(task.Description)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Status: %s\n", task.Status)
	fmt.Fprintf(&desc, "Priority: %s\n", task.Priority)
	if task.Project != "" {
		fmt.Fprintf(&desc, "Project: %s\n", task.Project)
	}
	fmt.Fprintf(&desc, "ID: %s\n", task.ID)

	desc.WriteString("\nAccounting:\n")
	est := task.Estimate()
	if est > 0 {
		fmt.Fprintf(&desc, "• estimated: %s\n", est)
	}
	if task.IsCompleted() && task.CompletedAt != nil && task.Due != nil {
		diff := task.CompletedAt.Sub(*task.Due)
		if diff > time.Minute {
			fmt.Fprintf(&desc, "• finished late by: %s\n", diff.Round(time.Minute))
		} else if diff < -time.Minute {
			fmt.Fprintf(&desc, "• finished early by: %s\n", (-diff).Round(time.Minute))
		}
	}

	return &calendar.Event{
		Summary:     Summary(task, now),
		ColorId:     colorID,
		Description: desc.String(),
		Start:       &calendar.EventDateTime{DateTime: start.UTC().Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.UTC().Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: task.ID},
		},
	}, nil
}

var descriptionID = regexp.MustCompile(`ID: ([A-Za-z0-9\-]+)`)

// GetTaskIDFromEventDescription parses the task ID from the event description.
func GetTaskIDFromEventDescription(description string) (string, bool) {
	matches := descriptionID.FindStringSubmatch(description)
	if len(matches) > 1 {
		return matches[1], true
	}
	return "", false
}
