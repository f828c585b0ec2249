package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/streamcraft/internal/elements/text"
	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/stage"
)

// NewHelloCmd creates the hello command.
func NewHelloCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Run a two-stage text pipeline",
		Long: `Hello runs the smallest useful pipeline: a text source linked to a console
sink. Every step sends the text once.

Examples:
  # Print "Test" three times
  streamcraft hello

  # Print a custom greeting five times
  streamcraft hello -n 5 --text "hi there"`,
		Args: cobra.NoArgs,
		RunE: runHelloCmd,
	}

	cmd.Flags().IntP("count", "n", 3, "Number of steps")
	cmd.Flags().String("text", "", "Text to send (default \"Test\")")

	return cmd
}

func runHelloCmd(cmd *cobra.Command, _ []string) error {
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}
	msg, err := cmd.Flags().GetString("text")
	if err != nil {
		return err
	}
	if msg != "" {
		msg += "\n"
	}

	src := text.NewTestSrc(msg)
	if err := src.Link(stage.SlotMain, text.NewStdoutLog(cmd.OutOrStdout())); err != nil {
		return err
	}
	p, err := pipeline.New(src, pipeline.WithName("hello"), pipeline.WithLogger(log.Logger()))
	if err != nil {
		return err
	}

	r := pipeline.Run(cmd.Context(), p, count)
	if r.Failed() {
		return fmt.Errorf("hello: %w", r.Error)
	}
	return nil
}
