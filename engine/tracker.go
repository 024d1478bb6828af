package engine

import (
	"time"

	"github.com/cstatic/cstatic/store"
)

// Tracker writes per-task lifecycle records into the run manifest so a run
// can be inspected after the fact. A nil Tracker disables tracking.
type Tracker struct {
	store store.Store
	runID string
}

// NewTracker creates a Tracker recording under the given run ID.
func NewTracker(s store.Store, runID string) *Tracker {
	return &Tracker{store: s, runID: runID}
}

// RunID returns the run this tracker records under.
func (t *Tracker) RunID() string {
	if t == nil {
		return ""
	}
	return t.runID
}

func (t *Tracker) save(task TransferTask, state store.TaskState, taskErr error) error {
	if t == nil || t.store == nil {
		return nil
	}
	record := &store.TaskRecord{
		RunID:           t.runID,
		Operation:       task.Op.String(),
		SourcePath:      task.SourcePath,
		DestinationPath: task.DestinationPath,
		State:           state,
		Size:            task.Size,
		UpdatedAt:       time.Now(),
	}
	if taskErr != nil {
		record.Error = taskErr.Error()
	}
	return t.store.SaveTask(record)
}

// Enqueued records a task as pending.
func (t *Tracker) Enqueued(task TransferTask) error {
	return t.save(task, store.StatePending, nil)
}

// Completed records a task as finished successfully.
func (t *Tracker) Completed(task TransferTask) error {
	return t.save(task, store.StateCompleted, nil)
}

// Failed records a task as failed with its error.
func (t *Tracker) Failed(task TransferTask, err error) error {
	return t.save(task, store.StateFailed, err)
}
