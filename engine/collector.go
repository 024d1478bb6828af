package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/cstatic/cstatic/storage"
)

// FoundFile is one file yielded by discovery: where it lives, where it will
// be collected to, and which source storage it comes from.
type FoundFile struct {
	SourcePath      string
	DestinationPath string
	Source          storage.Source
	Size            int64
}

// Finder produces the finite sequence of files to collect. It is consumed
// exactly once per run.
type Finder interface {
	Find(ctx context.Context, fn func(FoundFile) error) error
}

// Options configure a collection run.
type Options struct {
	// Faster enables parallel mode: discovery enqueues transfer tasks and
	// a worker pool drains them concurrently.
	Faster bool

	// Workers is the pool size for parallel mode. Zero means
	// DefaultWorkerCount; negative values are rejected.
	Workers int

	// Link collects files by linking instead of copying.
	Link bool

	// DryRun keeps all bookkeeping but never mutates the backend.
	DryRun bool

	// PostProcess runs the backend's post-processing pass, if the backend
	// has one, over the files touched this run.
	PostProcess bool
}

// Summary reports what a run did.
type Summary struct {
	RunID         string
	Transferred   int
	Failed        int
	PostProcessed []string
	Elapsed       time.Duration
}

// Collector orchestrates one collection run: it discovers files, transfers
// them sequentially or through the worker pool, and hands the set of
// touched files to the backend's post-processor.
type Collector struct {
	finder  Finder
	backend storage.Backend
	opts    Options
	tracker *Tracker
	stats   *Stats
	out     io.Writer
	log     zerolog.Logger
}

// NewCollector creates a Collector. Invalid options are rejected here,
// before any work starts.
func NewCollector(finder Finder, backend storage.Backend, opts Options, log zerolog.Logger) (*Collector, error) {
	if finder == nil {
		return nil, errors.New("collector requires a finder")
	}
	if backend == nil {
		return nil, errors.New("collector requires a destination backend")
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", opts.Workers)
	}
	if opts.Workers == 0 {
		opts.Workers = DefaultWorkerCount
	}
	return &Collector{
		finder:  finder,
		backend: backend,
		opts:    opts,
		out:     os.Stdout,
		log:     log,
	}, nil
}

// WithTracker records every task in the run manifest.
func (c *Collector) WithTracker(t *Tracker) *Collector {
	c.tracker = t
	return c
}

// WithStats publishes live counters for progress reporting.
func (c *Collector) WithStats(s *Stats) *Collector {
	c.stats = s
	return c
}

// WithOutput redirects the human-readable per-file and summary lines.
func (c *Collector) WithOutput(w io.Writer) *Collector {
	c.out = w
	return c
}

// Run executes one collection run.
//
// In sequential mode the first transfer failure aborts the run. In parallel
// mode every queued task is attempted regardless of failures; failures are
// joined and returned after post-processing, which still runs over the full
// record (a transfer failure does not suppress post-processing, it only
// forces a non-zero result). A post-processing failure is always fatal.
func (c *Collector) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	record := NewRecord()
	queue := NewTaskQueue()
	transferred := 0

	stats := c.stats
	if stats == nil {
		stats = &Stats{}
	}
	exec := NewExecutor(c.backend, c.log).
		WithTracker(c.tracker).
		WithStats(stats).
		WithDryRun(c.opts.DryRun)

	op := OpCopy
	if c.opts.Link {
		op = OpLink
	}

	c.log.Info().
		Bool("faster", c.opts.Faster).
		Int("workers", c.opts.Workers).
		Bool("dry_run", c.opts.DryRun).
		Str("run_id", c.tracker.RunID()).
		Msg("starting collection")

	// Discovery populates the record and, in parallel mode, the full queue
	// before any worker starts.
	err := c.finder.Find(ctx, func(f FoundFile) error {
		task := TransferTask{
			Op:              op,
			SourcePath:      f.SourcePath,
			DestinationPath: f.DestinationPath,
			Source:          f.Source,
			Size:            f.Size,
		}
		record.Set(f.DestinationPath, f.SourcePath, f.Source)
		stats.addDiscovered(f.Size)

		if c.opts.Faster {
			// Stale-destination checks are skipped here on purpose:
			// every destination is overwritten by its transfer anyway.
			queue.Put(task)
			transferred++
			if err := c.tracker.Enqueued(task); err != nil {
				c.log.Warn().Err(err).Str("destination", task.DestinationPath).Msg("failed to record enqueued task")
			}
			return nil
		}

		proceed, err := c.freshen(ctx, task)
		if err != nil {
			return err
		}
		if !proceed {
			return nil
		}
		if err := exec.Execute(ctx, task); err != nil {
			return err
		}
		transferred++
		return nil
	})
	if err != nil {
		// A finder error or a sequential transfer failure is fatal.
		return nil, err
	}

	var transferErr error
	if c.opts.Faster {
		pool, err := NewWorkerPool(queue, exec.Execute, c.opts.Workers)
		if err != nil {
			return nil, err
		}
		// Blocks until every worker has exited: post-processing must never
		// start while a task is still in flight.
		transferErr = pool.Run(ctx)
	}

	summary := &Summary{
		RunID:       c.tracker.RunID(),
		Transferred: transferred,
		Elapsed:     time.Since(start),
	}

	if c.opts.PostProcess {
		if pp, ok := c.backend.(storage.PostProcessor); ok {
			if err := c.postProcess(ctx, pp, record, summary); err != nil {
				summary.Elapsed = time.Since(start)
				summary.Failed = int(stats.Snapshot().Failed)
				return summary, errors.Join(transferErr, err)
			}
		}
	}

	summary.Elapsed = time.Since(start)
	summary.Failed = int(stats.Snapshot().Failed)

	if c.opts.Faster {
		fmt.Fprintf(c.out, "%d static files copied asynchronously in %ds.\n",
			transferred, int(summary.Elapsed.Seconds()))
	} else {
		fmt.Fprintf(c.out, "%d static files copied.\n", transferred)
	}
	return summary, transferErr
}

// freshen is the sequential-mode staleness check: report false (skip) when
// the destination is at least as new as the source, delete the stale
// destination otherwise.
func (c *Collector) freshen(ctx context.Context, task TransferTask) (bool, error) {
	exists, err := c.backend.Exists(ctx, task.DestinationPath)
	if err != nil {
		return false, fmt.Errorf("%s: exists check failed: %w", task.DestinationPath, err)
	}
	if !exists {
		return true, nil
	}

	srcInfo, err := task.Source.Stat(ctx, task.SourcePath)
	if err != nil {
		return false, fmt.Errorf("%s: source stat failed: %w", task.SourcePath, err)
	}
	dstInfo, err := c.backend.Stat(ctx, task.DestinationPath)
	if err == nil && !dstInfo.ModTime().Before(srcInfo.ModTime()) {
		c.log.Debug().Str("destination", task.DestinationPath).Msg("destination up to date, skipping")
		return false, nil
	}

	if c.opts.DryRun {
		return true, nil
	}
	if err := c.backend.Delete(ctx, task.DestinationPath); err != nil {
		return false, fmt.Errorf("%s: failed to delete stale file: %w", task.DestinationPath, err)
	}
	return true, nil
}

func (c *Collector) postProcess(ctx context.Context, pp storage.PostProcessor, record *Record, summary *Summary) error {
	return pp.PostProcess(ctx, record.Files(), c.opts.DryRun, func(res storage.PostProcessResult) error {
		if res.Err != nil {
			// The path goes out on its own line, followed by a blank one,
			// so it isn't missed when the error detail gets truncated.
			fmt.Fprintf(c.out, "Post-processing '%s' failed!\n\n", res.OriginalPath)
			return &PostProcessError{Path: res.OriginalPath, Err: res.Err}
		}
		if res.Processed {
			fmt.Fprintf(c.out, "Post-processed '%s' as '%s'\n", res.OriginalPath, res.ProcessedPath)
			summary.PostProcessed = append(summary.PostProcessed, res.OriginalPath)
		} else {
			fmt.Fprintf(c.out, "Skipped post-processing '%s'\n", res.OriginalPath)
		}
		return nil
	})
}
