package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/toshas/imagecompare/internal/config"
	"github.com/toshas/imagecompare/internal/model"
	"github.com/toshas/imagecompare/internal/output"
	"github.com/toshas/imagecompare/internal/session"
	"github.com/toshas/imagecompare/internal/ui"
)

// newWatchCmd creates the live watch command.
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch DIR [DIR...]",
		Short: "Watch modality directories and stream grouping changes",
		Long: `Open a session over the given modality directories, print the initial
grouping, then keep it synchronized with the filesystem. Every model
change is streamed as one line until interrupted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args)
		},
	}
}

func runWatch(cmd *cobra.Command, dirs []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(dirs[0])
	if err != nil {
		return err
	}
	cleanup, err := configureLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := session.Open(ctx, dirs, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	w := cmd.OutOrStdout()
	styles := ui.GetStyles(noColor || !ui.IsTTY(w))
	out := output.New(w)

	renderView(w, s.StaticView())
	out.Newline()
	out.Status("▶", "watching for changes (ctrl-c to stop)")

	// Runs on the engine goroutine; keep it to a single line write.
	s.Subscribe(func(d model.Delta) {
		out.Status("", styles.Label.Render(d.Kind.String())+" "+describeDelta(d))
	})

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	out.Newline()
	out.Success("session closed")
	return nil
}

// describeDelta renders the delta coordinates for the stream.
func describeDelta(d model.Delta) string {
	switch d.Kind {
	case model.DeltaModalityAdded, model.DeltaModalityRemoved:
		return fmt.Sprintf("modality=%d %s", d.Modality, d.Name)
	case model.DeltaTupleAdded, model.DeltaTupleRemoved, model.DeltaWinnerChanged:
		return fmt.Sprintf("tuple=%d %s", d.Tuple, d.Name)
	default:
		return fmt.Sprintf("tuple=%d modality=%d %s", d.Tuple, d.Modality, d.Name)
	}
}
