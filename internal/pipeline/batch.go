package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/streamcraft/internal/log"
	"github.com/nao1215/streamcraft/internal/model"
)

// Job is one pipeline run for a BatchRunner. Build is called inside the
// job's goroutine so every run gets a fresh chain.
type Job struct {
	Name     string
	Build    func() (*Pipeline, error)
	MaxSteps int
}

// BatchRunner runs independent pipelines concurrently.
type BatchRunner struct {
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchRunner.
type BatchOption func(*BatchRunner)

// WithBatchLogger sets the logger for batch-level events.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchRunner) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of pipelines running at once.
// Default is 4.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchRunner) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchRunner creates a BatchRunner.
func NewBatchRunner(opts ...BatchOption) *BatchRunner {
	b := &BatchRunner{concurrency: 4}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = log.Logger()
	}
	return b
}

// Concurrency returns the configured limit.
func (b *BatchRunner) Concurrency() int {
	return b.concurrency
}

// RunAll runs every job and returns one report per job, in job order. A
// failed job is recorded in its report and does not stop the others. Jobs
// not yet started when ctx is cancelled are reported as cancelled.
func (b *BatchRunner) RunAll(ctx context.Context, jobs []Job) []*model.RunReport {
	b.logger.Info("starting batch", "pipelines", len(jobs), "concurrency", b.concurrency)
	start := time.Now()

	reports := make([]*model.RunReport, len(jobs))

	var g errgroup.Group
	g.SetLimit(b.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			reports[i] = b.runOne(ctx, job)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // job errors are recorded in the reports

	b.logger.Info("batch complete", "pipelines", len(jobs), "elapsed", time.Since(start))
	return reports
}

func (b *BatchRunner) runOne(ctx context.Context, job Job) *model.RunReport {
	if err := ctx.Err(); err != nil {
		r := model.NewRunReport(job.Name)
		r.Finish(model.StatusCancelled, 0, nil)
		r.ErrorMessage = err.Error()
		return r
	}

	p, err := job.Build()
	if err != nil {
		b.logger.Warn("pipeline build failed", "pipeline", job.Name, "error", err)
		r := model.NewRunReport(job.Name)
		r.Finish(model.StatusFailed, 0, err)
		return r
	}

	report := Run(ctx, p, job.MaxSteps)
	if job.Name != "" {
		report.Name = job.Name
	}
	if report.Failed() {
		b.logger.Warn("pipeline failed", "pipeline", report.Name, "error", report.Error)
	} else {
		b.logger.Info("pipeline finished", "pipeline", report.Name, "status", report.Status, "steps", report.Steps)
	}
	return report
}
