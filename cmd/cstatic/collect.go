package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cstatic/cstatic/config"
	"github.com/cstatic/cstatic/engine"
	"github.com/cstatic/cstatic/finder"
	"github.com/cstatic/cstatic/storage"
	"github.com/cstatic/cstatic/store"
	"github.com/cstatic/cstatic/ui"
)

func newCollectCommand(configFlag *string, quiet *bool) *cobra.Command {
	var (
		faster        bool
		workers       int
		dryRun        bool
		linkFiles     bool
		noPostProcess bool
		tuiEnabled    bool
		ignore        []string
		dest          string
		roots         []string
	)

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect static files from the source roots into the destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*quiet)

			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}

			// Flags overlay the file.
			if cmd.Flags().Changed("faster") {
				cfg.Faster = faster
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("link") {
				cfg.Link = linkFiles
			}
			if noPostProcess {
				cfg.PostProcess = false
			}
			if dest != "" {
				cfg.Destination = dest
			}
			for _, r := range roots {
				path, prefix, _ := strings.Cut(r, ":")
				cfg.Roots = append(cfg.Roots, config.Root{Path: path, Prefix: prefix})
			}
			cfg.Ignore = append(cfg.Ignore, ignore...)

			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := os.MkdirAll(cfg.ManifestDir, 0755); err != nil {
				return fmt.Errorf("failed to create manifest directory: %w", err)
			}

			// Two concurrent runs against the same manifest would trample
			// each other's records.
			lock := flock.New(filepath.Join(cfg.ManifestDir, "cstatic.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("failed to acquire run lock: %w", err)
			}
			if !locked {
				return errors.New("another cstatic run is already in progress")
			}
			defer lock.Unlock()

			st, err := store.NewBoltStore(filepath.Join(cfg.ManifestDir, "manifest.db"))
			if err != nil {
				return err
			}
			defer st.Close()

			backend, err := buildBackend(ctx, cfg)
			if err != nil {
				return err
			}

			runID := uuid.NewString()
			tracker := engine.NewTracker(st, runID)

			fRoots := make([]finder.Root, 0, len(cfg.Roots))
			for _, r := range cfg.Roots {
				fRoots = append(fRoots, finder.Root{Source: storage.NewLocal(r.Path), Prefix: r.Prefix})
			}
			fndr := finder.New(log, fRoots...).WithIgnore(cfg.Ignore...)

			stats := &engine.Stats{}
			col, err := engine.NewCollector(fndr, backend, engine.Options{
				Faster:      cfg.Faster,
				Workers:     cfg.Workers,
				Link:        cfg.Link,
				DryRun:      dryRun,
				PostProcess: cfg.PostProcess,
			}, log)
			if err != nil {
				return err
			}
			col.WithTracker(tracker).WithStats(stats)

			run := &store.RunRecord{ID: runID, StartedAt: time.Now(), Faster: cfg.Faster}
			if err := st.SaveRun(run); err != nil {
				log.Warn().Err(err).Msg("failed to record run start")
			}

			var summary *engine.Summary
			var runErr error
			if tuiEnabled {
				summary, runErr = runWithTUI(ctx, col, stats, cfg)
			} else {
				summary, runErr = col.Run(ctx)
			}

			if summary != nil {
				run.FinishedAt = time.Now()
				run.Transferred = summary.Transferred
				run.Failed = summary.Failed
				if err := st.SaveRun(run); err != nil {
					log.Warn().Err(err).Msg("failed to record run result")
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&faster, "faster", false, "Collect static files simultaneously")
	cmd.Flags().IntVar(&workers, "workers", engine.DefaultWorkerCount, "Amount of simultaneous workers")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Do everything except modify the destination")
	cmd.Flags().BoolVar(&linkFiles, "link", false, "Create symbolic links instead of copying")
	cmd.Flags().BoolVar(&noPostProcess, "no-post-process", false, "Skip the post-processing pass")
	cmd.Flags().BoolVar(&tuiEnabled, "tui", false, "Show a live progress view")
	cmd.Flags().StringArrayVarP(&ignore, "ignore", "i", nil, "Glob pattern of files to skip (repeatable)")
	cmd.Flags().StringVar(&dest, "dest", "", "Destination (local path, s3://... or minio://...)")
	cmd.Flags().StringArrayVar(&roots, "root", nil, "Source root as path[:prefix] (repeatable)")

	return cmd
}

// runWithTUI runs the collector in the background while the progress view
// owns the terminal. Per-file output is buffered and replayed afterwards.
func runWithTUI(ctx context.Context, col *engine.Collector, stats *engine.Stats, cfg *config.Config) (*engine.Summary, error) {
	var out bytes.Buffer
	col.WithOutput(&out)

	program := tea.NewProgram(ui.NewModel(cfg.Workers, cfg.Faster))

	type result struct {
		summary *engine.Summary
		err     error
	}
	resCh := make(chan result, 1)
	done := make(chan struct{})

	go func() {
		summary, err := col.Run(ctx)
		resCh <- result{summary, err}
		program.Send(ui.DoneMsg{})
	}()

	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				program.Send(ui.UpdateMsg{Snapshot: stats.Snapshot()})
			}
		}
	}()

	_, uiErr := program.Run()
	close(done)

	res := <-resCh
	fmt.Print(out.String())
	if res.err != nil {
		return res.summary, res.err
	}
	return res.summary, uiErr
}

func buildBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	dest, err := config.ParseDestination(cfg.Destination)
	if err != nil {
		return nil, err
	}

	switch dest.Kind {
	case config.DestinationS3:
		return storage.NewS3(ctx, dest.Bucket, dest.Prefix)
	case config.DestinationMinio:
		return storage.NewMinio(dest.Endpoint, dest.Bucket, dest.Prefix, dest.Secure)
	default:
		local := storage.NewLocal(dest.Path)
		if cfg.PostProcess {
			return storage.NewHashedLocal(local), nil
		}
		return local, nil
	}
}
