package config

import "errors"

// Configuration validation errors, returned by Config.Validate so that
// callers can match them with errors.Is.
var (
	// ErrNoRecipe is returned when no recipe file is given or found.
	ErrNoRecipe = errors.New("no recipe specified: provide a recipe file or create " + DefaultRecipeFile)

	// ErrInvalidSteps is returned when the step limit is negative.
	// Zero means no limit.
	ErrInvalidSteps = errors.New("invalid steps: must be non-negative")

	// ErrInvalidConcurrency is returned when the number of recipes run at
	// once is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidTimeout is returned when the run timeout is negative.
	// Zero means no timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")
)
