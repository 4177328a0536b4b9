// Package cmd provides the CLI commands for imagecompare.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/toshas/imagecompare/internal/config"
	"github.com/toshas/imagecompare/internal/logging"
	"github.com/toshas/imagecompare/pkg/version"
)

var (
	debugMode      bool
	noColor        bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the imagecompare CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "imagecompare",
		Short: "Compare image sets across modality directories",
		Long: `imagecompare matches images across modality directories (ground truth,
predictions, crops) into named tuples by filename, and can keep the
grouping synchronized with the filesystem as files are added, removed,
or renamed.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.SetVersionTemplate("imagecompare version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.imagecompare/logs/")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newMatchCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables file logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugOptions())
	if err != nil {
		return fmt.Errorf("failed to set up debug logging: %w", err)
	}
	slog.SetDefault(logger)
	loggingCleanup = cleanup
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// configureLogging applies the session config's log settings. With
// --debug the root hook already installed the file logger and config
// is ignored. Returns a cleanup function when file logging is active.
func configureLogging(cfg *config.Config) (func(), error) {
	if debugMode {
		return func() {}, nil
	}
	if cfg.Log.File != "" {
		lopts := logging.DefaultOptions()
		lopts.Level = cfg.Log.Level
		lopts.FilePath = cfg.Log.File
		logger, cleanup, err := logging.Setup(lopts)
		if err != nil {
			return nil, fmt.Errorf("failed to set up file logging: %w", err)
		}
		slog.SetDefault(logger)
		return cleanup, nil
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logging.LevelFromString(cfg.Log.Level),
	})
	slog.SetDefault(slog.New(handler))
	return func() {}, nil
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
