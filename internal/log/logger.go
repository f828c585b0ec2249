package log

import (
	"io"
	"log/slog"
	"sync/atomic"
)

// StageKey is the attribute key Named attaches to every record.
const StageKey = "stage"

var process atomic.Pointer[slog.Logger]

// NewLogger creates a logger writing to w through a RedactingHandler.
// Verbose selects the debug level, otherwise only warnings and errors are
// written. JSON selects the JSON handler instead of the text handler.
func NewLogger(w io.Writer, verbose, json bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewRedactingHandler(handler))
}

// Init installs the process-wide logger used by Named. Calling Init again
// replaces it.
func Init(logger *slog.Logger) {
	process.Store(logger)
}

// Logger returns the process-wide logger, or slog.Default when Init was
// never called.
func Logger() *slog.Logger {
	if l := process.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Named returns the process-wide logger tagged with a stage name.
func Named(name string) *slog.Logger {
	return Logger().With(StageKey, name)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
