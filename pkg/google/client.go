package google

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/dayboard/pkg/colors"
	"github.com/harrisonrobin/dayboard/pkg/index"
)

// NewClient resolves calendarName among the user's calendars and returns a
// client bound to it. The name matches a calendar's summary
// case-insensitively or its id; "primary" selects the primary calendar.
func NewClient(ctx context.Context, srv *calendar.Service, calendarName string, idx *index.EventIndex, cc *colors.ColorCache) (*CalendarClient, error) {
	calendarID, err := resolveCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx, cc), nil
}

func resolveCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	var ids []string
	var summaryMatch string
	err := srv.CalendarList.List().Context(ctx).Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			ids = append(ids, item.Id)
			switch {
			case item.Id == name, name == "primary" && item.Primary:
				summaryMatch = item.Id
				return nil
			case summaryMatch == "" && strings.EqualFold(item.Summary, name):
				summaryMatch = item.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if summaryMatch == "" {
		return "", fmt.Errorf("calendar '%s' not found among %d calendars", name, len(ids))
	}
	return summaryMatch, nil
}
