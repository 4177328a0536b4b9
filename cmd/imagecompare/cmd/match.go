package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/toshas/imagecompare/internal/config"
	"github.com/toshas/imagecompare/internal/output"
	"github.com/toshas/imagecompare/internal/session"
	"github.com/toshas/imagecompare/internal/ui"
)

// newMatchCmd creates the one-shot match command.
func newMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match DIR [DIR...]",
		Short: "Match images into tuples and print the grouping",
		Long: `Scan the given modality directories, match their images into tuples
by filename, and print the resulting grouping as a table. Winners
persisted by earlier sessions are marked with an asterisk.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, args)
		},
	}
}

func runMatch(cmd *cobra.Command, dirs []string) error {
	cfg, err := config.Load(dirs[0])
	if err != nil {
		return err
	}
	cleanup, err := configureLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := session.Open(cmd.Context(), dirs, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	renderView(cmd.OutOrStdout(), s.StaticView())
	return nil
}

// renderView prints the grouping as an aligned table.
func renderView(w io.Writer, v session.View) {
	styles := ui.GetStyles(noColor || !ui.IsTTY(w))
	out := output.New(w)

	header := make([]string, 0, len(v.Modalities)+1)
	header = append(header, "TUPLE")
	header = append(header, v.Modalities...)

	rows := make([][]string, 0, len(v.Tuples))
	for _, tv := range v.Tuples {
		row := make([]string, 0, len(tv.Images)+1)
		row = append(row, styles.Header.Render(tv.Name))
		for i, img := range tv.Images {
			switch {
			case img == "":
				row = append(row, styles.Missing.Render("-"))
			case tv.Winner != "" && v.Modalities[i] == tv.Winner:
				row = append(row, styles.Winner.Render(img+" *"))
			default:
				row = append(row, img)
			}
		}
		rows = append(rows, row)
	}

	out.Table(header, rows)
	out.Newline()
	out.Statusf("", "%d tuples across %d modalities", len(v.Tuples), len(v.Modalities))
}
