package model

import "time"

// Status is the final state of one pipeline run.
type Status string

const (
	// StatusExhausted means the head ran out of work.
	StatusExhausted Status = "exhausted"
	// StatusStepLimit means the run stopped at its configured step limit.
	StatusStepLimit Status = "step-limit"
	// StatusCancelled means the run was cancelled between steps.
	StatusCancelled Status = "cancelled"
	// StatusFailed means init, a step, or teardown returned an error.
	StatusFailed Status = "failed"
)

// RunReport describes one pipeline run from init to teardown.
type RunReport struct {
	// PipelineID is the unique ID assigned when the pipeline was built.
	PipelineID string `json:"pipeline_id"`

	// Name is the recipe or pipeline name.
	Name string `json:"name"`

	// Started is when init was called.
	Started time.Time `json:"started"`

	// Duration covers init, every step, and teardown.
	Duration time.Duration `json:"duration"`

	// Steps is the number of steps that made progress.
	Steps int `json:"steps"`

	// Status is the final state.
	Status Status `json:"status"`

	// Error holds the failure, if any. It is not serialized.
	Error error `json:"-"`

	// ErrorMessage is Error as text for serialized reports.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRunReport creates a report for a run starting now.
func NewRunReport(name string) *RunReport {
	return &RunReport{
		Name:    name,
		Started: time.Now(),
	}
}

// Finish records the final status and the elapsed time.
func (r *RunReport) Finish(status Status, steps int, err error) {
	r.Status = status
	r.Steps = steps
	r.Duration = time.Since(r.Started)
	if err != nil {
		r.Status = StatusFailed
		r.Error = err
		r.ErrorMessage = err.Error()
	}
}

// Failed reports whether the run ended with an error.
func (r *RunReport) Failed() bool {
	return r.Status == StatusFailed
}

// Summary aggregates several run reports.
type Summary struct {
	Runs      int           `json:"runs"`
	Exhausted int           `json:"exhausted"`
	Failed    int           `json:"failed"`
	Steps     int           `json:"steps"`
	Duration  time.Duration `json:"duration"`
}

// Summarize aggregates reports. Nil entries are skipped.
func Summarize(reports []*RunReport) Summary {
	var s Summary
	for _, r := range reports {
		if r == nil {
			continue
		}
		s.Runs++
		s.Steps += r.Steps
		s.Duration += r.Duration
		switch r.Status {
		case StatusExhausted:
			s.Exhausted++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}
