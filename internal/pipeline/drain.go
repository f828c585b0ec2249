package pipeline

import (
	"context"
	"errors"

	"github.com/nao1215/streamcraft/internal/model"
)

// Drain steps p until it is exhausted, ctx is done, or maxSteps steps have
// progressed. A maxSteps of zero or less means no limit. The context is
// checked between steps only; a step in progress is never interrupted.
//
// Drain returns the number of steps that progressed during the call and the
// outcome of the last step.
func Drain(ctx context.Context, p *Pipeline, maxSteps int) (int, Outcome, error) {
	var (
		steps   int
		outcome Outcome
	)
	for maxSteps <= 0 || steps < maxSteps {
		if err := ctx.Err(); err != nil {
			return steps, outcome, err
		}

		o, err := p.Step()
		if err != nil {
			return steps, o, err
		}
		outcome = o
		if o == Exhausted {
			return steps, outcome, nil
		}
		steps++
	}
	return steps, outcome, nil
}

// Run initializes p, drains it and tears it down, recording the result in a
// RunReport. Teardown always runs. A run whose stages failed is reported as
// failed with the failures from Pipeline.Err, even though the head reported
// that it finished.
func Run(ctx context.Context, p *Pipeline, maxSteps int) *model.RunReport {
	report := model.NewRunReport(p.Name())
	report.PipelineID = p.ID().String()

	var (
		steps   int
		outcome Outcome
		err     error
	)
	if err = p.Init(); err == nil {
		steps, outcome, err = Drain(ctx, p, maxSteps)
	}
	err = errors.Join(err, p.Teardown())
	if err == nil {
		err = p.Err()
	}

	switch {
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		report.Finish(model.StatusCancelled, steps, nil)
		report.ErrorMessage = ctx.Err().Error()
	case err != nil:
		report.Finish(model.StatusFailed, steps, err)
	case outcome == Exhausted:
		report.Finish(model.StatusExhausted, steps, nil)
	default:
		report.Finish(model.StatusStepLimit, steps, nil)
	}
	return report
}
