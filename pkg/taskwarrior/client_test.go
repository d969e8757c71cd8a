package taskwarrior

import (
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

func TestParseTask(t *testing.T) {
	input := `{
		"uuid": "f45a05b3-c12e-42e5-9c9c-333333333333",
		"description": "Buy milk",
		"status": "pending",
		"due": "20230101T120000Z",
		"project": "Groceries",
		"tags": ["buy", "food"],
		"annotations": [
			{"entry": "20230101T120500Z", "description": "Don't forget almond milk"}
		]
	}`

	client := NewClient()
	task, err := client.ParseTask(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTask failed: %v", err)
	}

	if task.UUID != "f45a05b3-c12e-42e5-9c9c-333333333333" {
		t.Errorf("Expected UUID f45a05b3-c12e-42e5-9c9c-333333333333, got %s", task.UUID)
	}
	if task.Description != "Buy milk" {
		t.Errorf("Expected Description 'Buy milk', got '%s'", task.Description)
	}
	if task.Project != "Groceries" {
		t.Errorf("Expected Project 'Groceries', got '%s'", task.Project)
	}
	if len(task.Tags) != 2 {
		t.Errorf("Expected 2 tags, got %d", len(task.Tags))
	}
	if len(task.Annotations) != 1 {
		t.Errorf("Expected 1 annotation, got %d", len(task.Annotations))
	}
	expectedDue, _ := time.Parse(time.RFC3339, "2023-01-01T12:00:00Z")
	if !task.Due.Time.Equal(expectedDue) {
		t.Errorf("Expected Due %v, got %v", expectedDue, task.Due.Time)
	}
}

func TestParseTasksArrayAndStream(t *testing.T) {
	client := NewClient()

	arr, err := client.ParseTasks(strings.NewReader(`[{"uuid":"a","description":"A","status":"pending"},{"uuid":"b","description":"B","status":"completed"}]`))
	if err != nil {
		t.Fatalf("ParseTasks array: %v", err)
	}
	if len(arr) != 2 || arr[1].UUID != "b" {
		t.Errorf("unexpected array result: %+v", arr)
	}

	stream, err := client.ParseTasks(strings.NewReader("{\"uuid\":\"a\",\"status\":\"pending\"}\n{\"uuid\":\"a\",\"status\":\"completed\"}\n"))
	if err != nil {
		t.Fatalf("ParseTasks stream: %v", err)
	}
	if len(stream) != 2 || stream[1].Status != COMPLETED {
		t.Errorf("unexpected stream result: %+v", stream)
	}

	if _, err := client.ParseTasks(strings.NewReader(`{"uuid":`)); err == nil {
		t.Error("expected error for truncated json")
	}
}

func TestToModel(t *testing.T) {
	input := `{"uuid":"u-1","description":"Ship release","status":"completed","priority":"H",
		"scheduled":"20230102T090000Z","end":"20230102T100000Z","entry":"20230101T080000Z",
		"start":"20230102T091000Z","est":"PT1H30M","tags":["work","a,b"],
		"annotations":[{"description":"tag v1.2"}]}`
	task, err := NewClient().ParseTask(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if !task.Importable() {
		t.Fatal("completed task should be importable")
	}

	m := task.ToModel("user-1")
	if m.UserID != "user-1" || m.Source != model.SourceTaskwarrior || m.ExternalID != "u-1" {
		t.Errorf("identity not mapped: %+v", m)
	}
	if m.Priority != model.PriorityHigh || m.Status != model.StatusCompleted {
		t.Errorf("priority/status = %s/%s", m.Priority, m.Status)
	}
	if m.EstimateMinutes != 90 {
		t.Errorf("EstimateMinutes = %d, want 90", m.EstimateMinutes)
	}
	if m.Due == nil || m.Due.Hour() != 9 {
		t.Errorf("scheduled should stand in for due, got %v", m.Due)
	}
	if m.CompletedAt == nil || m.CompletedAt.Hour() != 10 {
		t.Errorf("CompletedAt = %v", m.CompletedAt)
	}
	if len(m.Tags) != 1 || m.Tags[0] != "work" {
		t.Errorf("Tags = %v, want [work]", m.Tags)
	}
	if m.Description != "‣ tag v1.2" {
		t.Errorf("Description = %q", m.Description)
	}

	started := Task{UUID: "x", Status: PENDING, Start: &CustomTime{Time: time.Now()}}
	if got := started.ToModel("u").Status; got != model.StatusInProgress {
		t.Errorf("started task status = %s", got)
	}
	if (&Task{UUID: "y", Status: DELETED}).Importable() {
		t.Error("deleted task should not be importable")
	}
}
