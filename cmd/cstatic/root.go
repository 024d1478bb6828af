package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cstatic/cstatic/config"
)

const defaultConfigFile = "cstatic.toml"

func newRootCommand() *cobra.Command {
	var configFlag string
	var quiet bool

	rootCmd := &cobra.Command{
		Use:           "cstatic",
		Short:         "Collect static assets into a storage destination",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")

	rootCmd.AddCommand(newCollectCommand(&configFlag, &quiet))
	rootCmd.AddCommand(newStatusCommand(&configFlag))

	return rootCmd
}

func newLogger(quiet bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if quiet {
		level = zerolog.WarnLevel
	}
	writer := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	})
	return zerolog.New(writer).With().Timestamp().Logger().Level(level)
}

// loadConfig reads the file given by --config, falling back to
// ./cstatic.toml when present and plain defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.Load(defaultConfigFile)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}
