package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cstatic/cstatic/store"
)

func newStatusCommand(configFlag *string) *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the task records of a collection run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}

			st, err := store.NewBoltStore(filepath.Join(cfg.ManifestDir, "manifest.db"))
			if err != nil {
				return err
			}
			defer st.Close()

			var run *store.RunRecord
			if runID != "" {
				run, err = st.GetRun(runID)
			} else {
				run, err = st.LatestRun()
			}
			if err != nil {
				return err
			}

			fmt.Printf("Run %s (started %s)\n", run.ID, run.StartedAt.Format(time.RFC3339))

			tasks, err := st.ListTasks(run.ID)
			if err != nil {
				return err
			}
			for _, task := range tasks {
				line := fmt.Sprintf("  %-9s %-4s %s", task.State, task.Operation, task.DestinationPath)
				if task.Error != "" {
					line += "  (" + task.Error + ")"
				}
				fmt.Println(line)
			}

			fmt.Printf("%d transferred, %d failed\n", run.Transferred, run.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID to show (defaults to the latest run)")
	return cmd
}
