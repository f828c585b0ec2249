package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/streamcraft/internal/av"
	"github.com/nao1215/streamcraft/internal/config"
	"github.com/nao1215/streamcraft/internal/database"
	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/model"
	"github.com/nao1215/streamcraft/internal/pipeline"
	"github.com/nao1215/streamcraft/internal/recipe"
	"github.com/nao1215/streamcraft/internal/report"
)

// ErrRunsFailed is returned when at least one pipeline run failed.
var ErrRunsFailed = errors.New("pipeline runs failed")

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [recipe.yaml...]",
		Short: "Run pipelines described by recipe files",
		Long: `Run builds one pipeline per recipe file and runs them concurrently.

Each pipeline steps its head stage until the head runs out of work, the step
limit is reached, or the command is interrupted. A report of every run is
written when all runs have finished, and the reports are saved to the
capture store together with the data of any store stages.

When no recipe is given, streamcraft.yaml is searched for in the current
directory and then in the XDG config directory.

Examples:
  # Run the recipe in the current directory
  streamcraft run

  # Run two recipes, at most 10 steps each
  streamcraft run --steps 10 page.yaml media.yaml

  # Write a Markdown report to a file
  streamcraft run --markdown -o report.md page.yaml`,
		Args: cobra.ArbitraryArgs,
		RunE: runRunCmd,
	}

	cmd.Flags().IntP("steps", "s", config.DefaultSteps,
		"Step limit for every recipe (0 keeps each recipe's own limit)")
	cmd.Flags().IntP("concurrency", "c", config.DefaultConcurrency,
		"Number of recipes run at once")
	cmd.Flags().DurationP("timeout", "t", 0,
		"Cancel runs still going after this long (0 means no timeout)")

	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the capture store")
	cmd.Flags().Bool("no-db", false,
		"Do not open the capture store (store stages fail to build)")

	return cmd
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	return runRecipes(ctx, cfg, cmd.OutOrStdout(), log.Logger())
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Recipes = args
	cfg.Recipes = cfg.ResolveRecipes()

	var err error
	if cfg.Steps, err = cmd.Flags().GetInt("steps"); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = cmd.Flags().GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
		return nil, err
	}
	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.JSONLogs = getBoolFlag(cmd, "log-json")

	return cfg, nil
}

// runRecipes loads every recipe, runs them and writes the report.
func runRecipes(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	recipes := make([]*recipe.Recipe, 0, len(cfg.Recipes))
	for _, path := range cfg.Recipes {
		r, err := recipe.Load(path)
		if err != nil {
			return err
		}
		recipes = append(recipes, r)
	}

	var db *database.CaptureDB
	if cfg.SaveToDB {
		var err error
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open capture store: %w", err)
		}
		defer db.Close()
		logger.Info("capture store opened", "path", db.Path())
	}

	env := recipe.Env{
		Out:     &syncWriter{w: out},
		Backend: av.NewSynthetic(),
		Logger:  logger,
	}
	if db != nil {
		env.Store = db
	}

	registry := recipe.DefaultRegistry()
	jobs := make([]pipeline.Job, len(recipes))
	for i, r := range recipes {
		maxSteps := r.Steps
		if cfg.Steps > 0 {
			maxSteps = cfg.Steps
		}
		jobs[i] = pipeline.Job{
			Name:     r.Name,
			MaxSteps: maxSteps,
			Build: func() (*pipeline.Pipeline, error) {
				return recipe.Build(r, registry, env)
			},
		}
	}

	runner := pipeline.NewBatchRunner(
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)
	reports := runner.RunAll(ctx, jobs)

	for _, r := range reports {
		if err := saveRunReport(ctx, db, r, logger); err != nil {
			logger.Error("failed to save run report", "pipeline", r.Name, "error", err)
		}
	}

	if err := outputReport(cfg, out, reports); err != nil {
		return err
	}

	if s := model.Summarize(reports); s.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRunsFailed, s.Failed, s.Runs)
	}
	return nil
}

// saveRunReport saves a run report to the capture store. If db is nil,
// this function is a no-op.
func saveRunReport(ctx context.Context, db *database.CaptureDB, r *model.RunReport, logger *slog.Logger) error {
	if db == nil {
		return nil
	}
	// Reports of cancelled runs are still saved.
	if err := db.SaveRunReport(context.WithoutCancel(ctx), r); err != nil {
		return fmt.Errorf("failed to save run report: %w", err)
	}
	logger.Debug("run report saved", "pipeline", r.Name, "status", r.Status)
	return nil
}

// outputReport writes the reports in the configured format to the report
// file, or to out when no file is configured.
func outputReport(cfg *config.Config, out io.Writer, reports []*model.RunReport) error {
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	format := report.FormatText
	switch {
	case cfg.JSONReport:
		format = report.FormatJSON
	case cfg.MarkdownReport:
		format = report.FormatMarkdown
	}

	_, err := report.New(out, format).Write(reports)
	return err
}

// syncWriter serializes writes from console stages of concurrent runs.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
