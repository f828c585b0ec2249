package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/streamcraft/internal/config"
	"github.com/nao1215/streamcraft/internal/database"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [pipeline]",
		Short: "Show saved runs and captures",
		Long: `History reads the capture store written by 'streamcraft run'.

Without arguments it lists every pipeline label that has captures. With a
pipeline name it lists the saved runs of that pipeline, newest first. Every
run has an ID; --run prints the captures that one run wrote.

Examples:
  # List labels with captures
  streamcraft history

  # Show the runs of a recipe
  streamcraft history page-text

  # Print the text captured under a label
  streamcraft history --captures page-text

  # Print the captures of one run
  streamcraft history --run 0b6f2c1e-5d7a-4c1b-9a53-2f4e8d7c6b10`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().Bool("captures", false,
		"Print the captures stored under the pipeline label")
	cmd.Flags().String("run", "",
		"Print the captures written by the run with this ID")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the capture store")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, args []string) error {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	captures, err := cmd.Flags().GetBool("captures")
	if err != nil {
		return err
	}
	runID, err := cmd.Flags().GetString("run")
	if err != nil {
		return err
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open capture store: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case runID != "":
		list, err := db.RunCaptures(ctx, runID)
		if err != nil {
			return err
		}
		printCaptures(out, list)
		return nil
	case len(args) == 0:
		return listLabels(ctx, db, out)
	case captures:
		list, err := db.Captures(ctx, args[0])
		if err != nil {
			return err
		}
		printCaptures(out, list)
		return nil
	default:
		return listRuns(ctx, db, out, args[0])
	}
}

func listLabels(ctx context.Context, db *database.CaptureDB, out io.Writer) error {
	labels, err := db.ListPipelines(ctx)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		fmt.Fprintln(out, "No captures found.")
		return nil
	}

	fmt.Fprintf(out, "%-30s %10s %12s\n", "PIPELINE", "CAPTURES", "BYTES")
	for _, label := range labels {
		count, size, err := db.CountCaptures(ctx, label)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-30s %10d %12d\n", label, count, size)
	}
	return nil
}

func listRuns(ctx context.Context, db *database.CaptureDB, out io.Writer, name string) error {
	runs, err := db.RunHistory(ctx, name)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %s.\n", name)
		return nil
	}

	fmt.Fprintf(out, "%-36s %-20s %-12s %8s %12s  %s\n", "ID", "STARTED", "STATUS", "STEPS", "DURATION", "ERROR")
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s %-20s %-12s %8d %12s  %s\n",
			r.PipelineID,
			r.Started.Format("2006-01-02 15:04:05"),
			r.Status,
			r.Steps,
			r.Duration.Round(time.Millisecond),
			r.ErrorMessage,
		)
	}
	return nil
}

func printCaptures(out io.Writer, captures []database.Capture) {
	for _, c := range captures {
		if c.Format == "text" {
			fmt.Fprint(out, string(c.Payload))
			continue
		}
		fmt.Fprintf(out, "#%d %s %d bytes\n", c.Seq, c.Format, len(c.Payload))
	}
}
