// Package orgmode reads TODO and DONE headings from Org-mode files.
package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/dayboard/pkg/model"
	"github.com/harrisonrobin/dayboard/pkg/util"
)

// namespace derives stable external ids for headings without an :ID:.
var namespace = uuid.MustParse("6f1c2a7e-8d0b-4c39-9e55-1b7a3c0d4e21")

var (
	headingRegex  = regexp.MustCompile(`^\*+\s+(TODO|NEXT|STARTED|DONE)\s+(?:\[#([A-Z])\]\s*)?(.*?)(?:\s+(:[\w@:]+:))?\s*$`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?[^>]*>`)
	schedRegex    = regexp.MustCompile(`SCHEDULED:\s+<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?[^>]*>`)
	closedRegex   = regexp.MustCompile(`CLOSED:\s+\[(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?[^\]]*\]`)
	propRegex     = regexp.MustCompile(`^:([A-Za-z_]+):\s+(.+)$`)
)

// ParseFiles parses multiple Org-mode files and returns their tasks.
func ParseFiles(filePaths []string, loc *time.Location) ([]model.Task, error) {
	var all []model.Task
	for _, p := range filePaths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		tasks, err := Parse(f, p, loc)
		f.Close()
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	return all, nil
}

// Parse reads tasks from r. file names the source and seeds the external id
// of headings that carry no :ID: property. Times are read in loc.
func Parse(r io.Reader, file string, loc *time.Location) ([]model.Task, error) {
	if loc == nil {
		loc = time.Local
	}
	scanner := bufio.NewScanner(r)
	var tasks []model.Task
	var current *model.Task
	var scheduled *time.Time

	flush := func() {
		if current == nil {
			return
		}
		if current.Due == nil && scheduled != nil {
			current.Due = scheduled
		}
		if current.ExternalID == "" {
			current.ExternalID = uuid.NewSHA1(namespace, []byte(file+"\x00"+current.Title)).String()
		}
		tasks = append(tasks, *current)
		current, scheduled = nil, nil
	}

	for scanner.Scan() {
		raw := scanner.Text()
		line := strings.TrimSpace(raw)

		if strings.HasPrefix(raw, "*") {
			flush()
			m := headingRegex.FindStringSubmatch(raw)
			if m == nil || strings.TrimSpace(m[3]) == "" {
				continue
			}
			current = &model.Task{
				Title:    strings.TrimSpace(m[3]),
				Status:   status(m[1]),
				Priority: priority(m[2]),
				Source:   model.SourceOrgmode,
			}
			if m[4] != "" {
				for _, tag := range strings.Split(strings.Trim(m[4], ":"), ":") {
					if tag != "" {
						current.Tags = append(current.Tags, tag)
					}
				}
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := deadlineRegex.FindStringSubmatch(line); m != nil {
			current.Due = orgTime(m[1], m[2], loc)
		}
		if m := schedRegex.FindStringSubmatch(line); m != nil {
			scheduled = orgTime(m[1], m[2], loc)
		}
		if m := closedRegex.FindStringSubmatch(line); m != nil {
			current.CompletedAt = orgTime(m[1], m[2], loc)
		}
		if m := propRegex.FindStringSubmatch(line); m != nil {
			switch strings.ToUpper(m[1]) {
			case "ID":
				current.ExternalID = strings.TrimSpace(m[2])
			case "EFFORT":
				if d, err := util.ParseEstimate(m[2]); err == nil {
					current.EstimateMinutes = int(d / time.Minute)
				}
			}
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// FilterTasks keeps the tasks carrying tag.
func FilterTasks(tasks []model.Task, tag string) []model.Task {
	var filtered []model.Task
	for _, task := range tasks {
		if task.Tags.Has(tag) {
			filtered = append(filtered, task)
		}
	}
	return filtered
}

func status(keyword string) model.TaskStatus {
	switch keyword {
	case "DONE":
		return model.StatusCompleted
	case "STARTED", "NEXT":
		return model.StatusInProgress
	default:
		return model.StatusTodo
	}
}

func priority(cookie string) model.Priority {
	switch cookie {
	case "A":
		return model.PriorityHigh
	case "C":
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

func orgTime(date, clock string, loc *time.Location) *time.Time {
	layout, value := "2006-01-02", date
	if clock != "" {
		layout, value = "2006-01-02 15:04", date+" "+clock
	}
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		return nil
	}
	return &t
}
