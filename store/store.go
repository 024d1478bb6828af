package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

var (
	// ErrTaskNotFound is returned when a task record is not in the manifest.
	ErrTaskNotFound = errors.New("task not found")
	// ErrRunNotFound is returned when a run record is not in the manifest.
	ErrRunNotFound = errors.New("run not found")
)

var (
	runsBucket  = []byte("runs")
	tasksBucket = []byte("tasks")
)

// TaskState represents the current state of one file transfer.
type TaskState string

const (
	StatePending   TaskState = "Pending"
	StateCompleted TaskState = "Completed"
	StateFailed    TaskState = "Failed"
)

// TaskRecord is the manifest entry for a single transfer task.
type TaskRecord struct {
	RunID           string    `json:"run_id"`
	Operation       string    `json:"operation"`
	SourcePath      string    `json:"source_path"`
	DestinationPath string    `json:"destination_path"`
	State           TaskState `json:"state"`
	Size            int64     `json:"size"`
	Error           string    `json:"error,omitempty"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// RunRecord summarizes one collection run.
type RunRecord struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
	Faster      bool      `json:"faster"`
	Transferred int       `json:"transferred"`
	Failed      int       `json:"failed"`
}

// Store defines the interface for the run manifest.
type Store interface {
	SaveRun(run *RunRecord) error
	GetRun(id string) (*RunRecord, error)
	LatestRun() (*RunRecord, error)
	SaveTask(task *TaskRecord) error
	GetTask(runID, destinationPath string) (*TaskRecord, error)
	ListTasks(runID string) ([]*TaskRecord, error)
	Close() error
}

// BoltStore is a Store implementation backed by bbolt.
type BoltStore struct {
	db *bbolt.DB
}

// NewBoltStore creates a new BoltStore at the given path.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(runsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(tasksBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create manifest buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// taskKey namespaces task records per run. Run IDs are UUIDs and never
// contain a slash, so the separator is unambiguous.
func taskKey(runID, destinationPath string) []byte {
	return []byte(runID + "/" + destinationPath)
}

// SaveRun upserts a run record.
func (s *BoltStore) SaveRun(run *RunRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("failed to marshal run: %w", err)
		}
		if err := tx.Bucket(runsBucket).Put([]byte(run.ID), data); err != nil {
			return fmt.Errorf("failed to put run: %w", err)
		}
		return nil
	})
}

// GetRun retrieves a run record by ID.
func (s *BoltStore) GetRun(id string) (*RunRecord, error) {
	var run RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(runsBucket).Get([]byte(id))
		if data == nil {
			return ErrRunNotFound
		}
		if err := json.Unmarshal(data, &run); err != nil {
			return fmt.Errorf("failed to unmarshal run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// LatestRun returns the run with the most recent start time.
func (s *BoltStore) LatestRun() (*RunRecord, error) {
	var latest *RunRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(runsBucket).ForEach(func(_, v []byte) error {
			var run RunRecord
			if err := json.Unmarshal(v, &run); err != nil {
				return fmt.Errorf("failed to unmarshal run: %w", err)
			}
			if latest == nil || run.StartedAt.After(latest.StartedAt) {
				latest = &run
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, ErrRunNotFound
	}
	return latest, nil
}

// SaveTask upserts a task record.
func (s *BoltStore) SaveTask(task *TaskRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("failed to marshal task: %w", err)
		}
		key := taskKey(task.RunID, task.DestinationPath)
		if err := tx.Bucket(tasksBucket).Put(key, data); err != nil {
			return fmt.Errorf("failed to put task: %w", err)
		}
		return nil
	})
}

// GetTask retrieves one task record from a run.
func (s *BoltStore) GetTask(runID, destinationPath string) (*TaskRecord, error) {
	var task TaskRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(tasksBucket).Get(taskKey(runID, destinationPath))
		if data == nil {
			return ErrTaskNotFound
		}
		if err := json.Unmarshal(data, &task); err != nil {
			return fmt.Errorf("failed to unmarshal task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks returns every task record of a run, ordered by destination path.
func (s *BoltStore) ListTasks(runID string) ([]*TaskRecord, error) {
	var tasks []*TaskRecord
	prefix := []byte(runID + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(tasksBucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix); k, v = c.Next() {
			var task TaskRecord
			if err := json.Unmarshal(v, &task); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}
			tasks = append(tasks, &task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Close closes the underlying store.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
