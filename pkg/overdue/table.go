// Package overdue tracks synced tasks with a future due time so a periodic
// sweep can mark their calendar events overdue once that time passes.
package overdue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/util"
)

const tableFile = "pending_tasks.json"

type Entry struct {
	TaskID  string    `json:"task_id"`
	UserID  string    `json:"user_id"`
	GCalID  string    `json:"gcal_id"`
	Summary string    `json:"summary"`
	Due     time.Time `json:"due"`
}

type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`
	mu      sync.Mutex
	dirty   bool
}

// NewTable loads dir/pending_tasks.json when present.
func NewTable(dir string) (*Table, error) {
	t := &Table{
		Path:    filepath.Join(dir, tableFile),
		Entries: make(map[string]Entry),
	}
	if _, err := os.Stat(t.Path); err == nil {
		if err := t.Load(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	return json.NewDecoder(f).Decode(t)
}

func (t *Table) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	if err := util.WriteJSON(t.Path, t); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Update tracks e while its due time is set, and forgets the task otherwise.
func (t *Table) Update(e Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e.Due.IsZero() {
		t.remove(e.TaskID)
		return
	}
	if old, ok := t.Entries[e.TaskID]; !ok || old != e {
		t.Entries[e.TaskID] = e
		t.dirty = true
	}
}

func (t *Table) Remove(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remove(taskID)
}

func (t *Table) remove(taskID string) {
	if _, exists := t.Entries[taskID]; exists {
		delete(t.Entries, taskID)
		t.dirty = true
	}
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Entries)
}

// Sweep returns entries that have become overdue (Due < now) and removes them.
func (t *Table) Sweep(now time.Time) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var swept []Entry
	for id, entry := range t.Entries {
		if entry.Due.Before(now) {
			swept = append(swept, entry)
			delete(t.Entries, id)
			t.dirty = true
		}
	}
	return swept
}
