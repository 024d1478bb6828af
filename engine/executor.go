package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cstatic/cstatic/storage"
)

// Executor applies a single TransferTask against the destination backend.
// It does not retry: retry policy, if any, belongs to the backend client.
type Executor struct {
	backend storage.Backend
	tracker *Tracker
	stats   *Stats
	dryRun  bool
	log     zerolog.Logger
}

// NewExecutor creates an Executor writing to backend.
func NewExecutor(backend storage.Backend, log zerolog.Logger) *Executor {
	return &Executor{
		backend: backend,
		log:     log,
	}
}

// WithTracker records task lifecycles in the run manifest.
func (e *Executor) WithTracker(t *Tracker) *Executor {
	e.tracker = t
	return e
}

// WithStats publishes task counters for progress reporting.
func (e *Executor) WithStats(s *Stats) *Executor {
	e.stats = s
	return e
}

// WithDryRun skips backend mutation while keeping all bookkeeping.
func (e *Executor) WithDryRun(dryRun bool) *Executor {
	e.dryRun = dryRun
	return e
}

// Execute performs the task's copy or link. The call blocks on backend I/O;
// that is expected and the reason parallel mode exists. Failures come back
// as a *TransferError; manifest write failures are logged but never fail
// the transfer itself.
func (e *Executor) Execute(ctx context.Context, task TransferTask) error {
	e.log.Debug().
		Str("op", task.Op.String()).
		Str("source", task.SourcePath).
		Str("destination", task.DestinationPath).
		Msg("transferring file")

	var err error
	if !e.dryRun {
		switch task.Op {
		case OpLink:
			err = e.backend.Link(ctx, task.Source, task.SourcePath, task.DestinationPath)
		default:
			err = e.backend.Copy(ctx, task.Source, task.SourcePath, task.DestinationPath)
		}
	}

	if err != nil {
		e.stats.addFailed()
		if trackErr := e.tracker.Failed(task, err); trackErr != nil {
			e.log.Warn().Err(trackErr).Str("destination", task.DestinationPath).Msg("failed to record task failure")
		}
		e.log.Error().Err(err).Str("destination", task.DestinationPath).Msg("transfer failed")
		return &TransferError{Op: task.Op, DestinationPath: task.DestinationPath, Err: err}
	}

	e.stats.addCompleted(task.Size)
	if trackErr := e.tracker.Completed(task); trackErr != nil {
		e.log.Warn().Err(trackErr).Str("destination", task.DestinationPath).Msg("failed to record task completion")
	}
	return nil
}
