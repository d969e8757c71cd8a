package overdue

import (
	"testing"
	"time"
)

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	table, err := NewTable(dir)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	table.Update(Entry{TaskID: "past", GCalID: "e1", Summary: "Report", Due: now.Add(-time.Minute)})
	table.Update(Entry{TaskID: "future", GCalID: "e2", Summary: "Review", Due: now.Add(time.Hour)})
	table.Update(Entry{TaskID: "nodue", GCalID: "e3"})
	if table.Len() != 2 {
		t.Fatalf("Len = %d, want 2", table.Len())
	}

	swept := table.Sweep(now)
	if len(swept) != 1 || swept[0].GCalID != "e1" {
		t.Fatalf("Sweep = %+v, want only e1", swept)
	}
	if table.Len() != 1 {
		t.Errorf("swept entry should be removed")
	}

	if err := table.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := NewTable(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if e, ok := reloaded.Entries["future"]; !ok || !e.Due.Equal(now.Add(time.Hour)) {
		t.Errorf("reloaded table lost future entry: %+v", reloaded.Entries)
	}

	reloaded.Update(Entry{TaskID: "future"})
	if reloaded.Len() != 0 {
		t.Errorf("entry without due should be removed")
	}
}
