package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "manifest.db")

	store, err := NewBoltStore(dbPath)
	if err != nil {
		t.Fatalf("Failed to create BoltStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStore_SaveAndGetTask(t *testing.T) {
	store := newTestStore(t)

	task := &TaskRecord{
		RunID:           "run-123",
		Operation:       "copy",
		SourcePath:      "css/styles.css",
		DestinationPath: "static/css/styles.css",
		State:           StatePending,
		Size:            1024,
		UpdatedAt:       time.Now(),
	}

	if err := store.SaveTask(task); err != nil {
		t.Fatalf("Failed to save task: %v", err)
	}

	retrieved, err := store.GetTask("run-123", "static/css/styles.css")
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if retrieved.State != StatePending {
		t.Errorf("Expected state %s, got %s", StatePending, retrieved.State)
	}
	if retrieved.Operation != "copy" {
		t.Errorf("Expected operation copy, got %s", retrieved.Operation)
	}

	// Updating the same task overwrites the record.
	task.State = StateFailed
	task.Error = "disk full"
	if err := store.SaveTask(task); err != nil {
		t.Fatalf("Failed to update task: %v", err)
	}

	retrieved, err = store.GetTask("run-123", "static/css/styles.css")
	if err != nil {
		t.Fatalf("Failed to get updated task: %v", err)
	}
	if retrieved.State != StateFailed {
		t.Errorf("Expected state %s, got %s", StateFailed, retrieved.State)
	}
	if retrieved.Error != "disk full" {
		t.Errorf("Expected error message, got %q", retrieved.Error)
	}
}

func TestBoltStore_GetTaskNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetTask("run-123", "static/missing.css")
	if !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestBoltStore_ListTasksScopedToRun(t *testing.T) {
	store := newTestStore(t)

	for _, tc := range []struct {
		runID string
		dest  string
	}{
		{"run-a", "static/b.js"},
		{"run-a", "static/a.css"},
		{"run-b", "static/other.css"},
	} {
		task := &TaskRecord{
			RunID:           tc.runID,
			Operation:       "copy",
			DestinationPath: tc.dest,
			State:           StateCompleted,
		}
		if err := store.SaveTask(task); err != nil {
			t.Fatalf("Failed to save task: %v", err)
		}
	}

	tasks, err := store.ListTasks("run-a")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks for run-a, got %d", len(tasks))
	}
	// Cursor iteration comes back in key order.
	if tasks[0].DestinationPath != "static/a.css" || tasks[1].DestinationPath != "static/b.js" {
		t.Errorf("Unexpected order: %s, %s", tasks[0].DestinationPath, tasks[1].DestinationPath)
	}

	tasks, err = store.ListTasks("run-c")
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected no tasks for unknown run, got %d", len(tasks))
	}
}

func TestBoltStore_SaveAndGetRun(t *testing.T) {
	store := newTestStore(t)

	run := &RunRecord{
		ID:          "run-123",
		StartedAt:   time.Now(),
		Faster:      true,
		Transferred: 42,
	}
	if err := store.SaveRun(run); err != nil {
		t.Fatalf("Failed to save run: %v", err)
	}

	retrieved, err := store.GetRun("run-123")
	if err != nil {
		t.Fatalf("Failed to get run: %v", err)
	}
	if !retrieved.Faster {
		t.Error("Expected faster run")
	}
	if retrieved.Transferred != 42 {
		t.Errorf("Expected 42 transferred, got %d", retrieved.Transferred)
	}

	_, err = store.GetRun("run-999")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestBoltStore_LatestRun(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.LatestRun(); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound on empty store, got %v", err)
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-new", "run-middle"} {
		offset := time.Duration(i) * time.Hour
		if id == "run-new" {
			offset = 48 * time.Hour
		}
		if err := store.SaveRun(&RunRecord{ID: id, StartedAt: base.Add(offset)}); err != nil {
			t.Fatalf("Failed to save run: %v", err)
		}
	}

	latest, err := store.LatestRun()
	if err != nil {
		t.Fatalf("Failed to get latest run: %v", err)
	}
	if latest.ID != "run-new" {
		t.Errorf("Expected run-new, got %s", latest.ID)
	}
}
