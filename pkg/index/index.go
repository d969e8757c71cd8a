// Package index persists the task id to Google Calendar event id mapping so
// syncs can patch events without searching the calendar.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/harrisonrobin/dayboard/pkg/util"
)

const indexFile = "events.json"

// EventIndex maps dayboard task ids to event ids in one calendar. It is
// shared by the HTTP handlers and the background jobs.
type EventIndex struct {
	path string

	mu         sync.RWMutex
	calendarID string
	events     map[string]string
	dirty      bool
}

type fileFormat struct {
	CalendarID string            `json:"calendar_id"`
	Events     map[string]string `json:"events"`
}

// NewEventIndex loads dir/events.json when present.
func NewEventIndex(dir string) (*EventIndex, error) {
	idx := &EventIndex{
		path:   filepath.Join(dir, indexFile),
		events: make(map[string]string),
	}
	if err := idx.load(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *EventIndex) load() error {
	b, err := os.ReadFile(idx.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read event index: %w", err)
	}
	var ff fileFormat
	if err := json.Unmarshal(b, &ff); err != nil {
		return fmt.Errorf("decode event index %s: %w", idx.path, err)
	}
	idx.calendarID = ff.CalendarID
	if ff.Events != nil {
		idx.events = ff.Events
	}
	return nil
}

// Path is the backing file.
func (idx *EventIndex) Path() string { return idx.path }

// Bind ties the index to calendarID. Mappings recorded for another
// calendar are dropped since their event ids mean nothing there.
func (idx *EventIndex) Bind(calendarID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.calendarID == calendarID {
		return
	}
	idx.calendarID = calendarID
	idx.events = make(map[string]string)
	idx.dirty = true
}

// Save writes the index if it changed since the last save. The file is
// replaced atomically.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	if err := util.WriteJSON(idx.path, fileFormat{CalendarID: idx.calendarID, Events: idx.events}); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.events[taskID]
}

func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.events[taskID] != eventID {
		idx.events[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.events[taskID]; ok {
		delete(idx.events, taskID)
		idx.dirty = true
	}
}

// TaskIDs returns the indexed task ids in sorted order.
func (idx *EventIndex) TaskIDs() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.events))
	for id := range idx.events {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (idx *EventIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.events)
}
