package schedule

import (
	"sort"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

// Options controls how a day is packed.
type Options struct {
	DayStart        time.Duration // offset from midnight
	DayEnd          time.Duration
	Gap             time.Duration
	DefaultDuration time.Duration
}

func DefaultOptions() Options {
	return Options{
		DayStart:        9 * time.Hour,
		DayEnd:          17 * time.Hour,
		DefaultDuration: 30 * time.Minute,
	}
}

// Block is a task placed on the day.
type Block struct {
	TaskID string    `json:"task_id"`
	Title  string    `json:"title"`
	Score  int       `json:"score"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

type DailySchedule struct {
	Date        string           `json:"date"`
	Blocks      []Block          `json:"blocks"`
	Unscheduled []Scored         `json:"unscheduled"`
	Busy        []model.Interval `json:"busy"`
}

// Plan ranks tasks and packs each into the first free slot of day, around the
// busy intervals. Tasks that do not fit before DayEnd end up in Unscheduled.
func Plan(tasks []model.Task, busy []model.Interval, day time.Time, now time.Time, opts Options) DailySchedule {
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = DefaultOptions().DefaultDuration
	}
	if opts.DayEnd <= opts.DayStart {
		d := DefaultOptions()
		opts.DayStart, opts.DayEnd = d.DayStart, d.DayEnd
	}

	y, m, d := day.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	start := midnight.Add(opts.DayStart)
	end := midnight.Add(opts.DayEnd)

	occupied := clip(busy, start, end)
	out := DailySchedule{
		Date:   midnight.Format("2006-01-02"),
		Blocks: []Block{},
		Busy:   occupied,
	}

	for _, s := range Rank(tasks, now) {
		dur := s.Task.Estimate()
		if dur <= 0 {
			dur = opts.DefaultDuration
		}
		slot, ok := firstFit(occupied, start, end, dur, opts.Gap)
		if !ok {
			out.Unscheduled = append(out.Unscheduled, s)
			continue
		}
		out.Blocks = append(out.Blocks, Block{
			TaskID: s.Task.ID,
			Title:  s.Task.Title,
			Score:  s.Score,
			Start:  slot.Start,
			End:    slot.End,
		})
		occupied = insert(occupied, slot)
	}
	return out
}

// clip keeps the parts of busy that intersect [start, end), sorted by start.
func clip(busy []model.Interval, start, end time.Time) []model.Interval {
	var out []model.Interval
	for _, b := range busy {
		if !b.End.After(start) || !b.Start.Before(end) {
			continue
		}
		if b.Start.Before(start) {
			b.Start = start
		}
		if b.End.After(end) {
			b.End = end
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// firstFit expects occupied sorted by start.
func firstFit(occupied []model.Interval, start, end time.Time, dur, gap time.Duration) (model.Interval, bool) {
	cursor := start
	for _, b := range occupied {
		if !b.Start.Before(cursor.Add(dur)) {
			break
		}
		if b.End.After(cursor) {
			cursor = b.End.Add(gap)
		}
	}
	if cursor.Add(dur).After(end) {
		return model.Interval{}, false
	}
	return model.Interval{Start: cursor, End: cursor.Add(dur)}, true
}

func insert(occupied []model.Interval, iv model.Interval) []model.Interval {
	i := sort.Search(len(occupied), func(i int) bool { return occupied[i].Start.After(iv.Start) })
	occupied = append(occupied, model.Interval{})
	copy(occupied[i+1:], occupied[i:])
	occupied[i] = iv
	return occupied
}
