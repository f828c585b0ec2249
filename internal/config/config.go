package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "streamcraft"

	// DefaultConcurrency is the number of recipes run at once.
	DefaultConcurrency = 4

	// DefaultSteps runs every recipe until its head is exhausted unless the
	// recipe sets its own limit.
	DefaultSteps = 0
)

// Config holds all configuration options for a streamcraft run.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Recipes are the recipe files to run. When empty, FindRecipeFile is
	// used to locate a default recipe.
	Recipes []string

	// Steps overrides the step limit of every recipe. Zero keeps the limit
	// each recipe sets.
	Steps int

	// Concurrency is the number of recipes run at once.
	Concurrency int

	// Timeout bounds a whole invocation. Zero means no timeout.
	Timeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// JSONLogs switches the log handler to JSON.
	JSONLogs bool

	// JSONReport renders run reports as JSON.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport renders run reports as GitHub Flavored Markdown.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report. When empty, the
	// report is written to standard output.
	ReportFile string

	// DBDir is the directory holding the capture store.
	// Defaults to the XDG data directory (~/.local/share/streamcraft on
	// Linux).
	DBDir string

	// SaveToDB stores run reports in the capture store.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Steps:       DefaultSteps,
		Concurrency: DefaultConcurrency,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for streamcraft.
// On Linux: ~/.local/share/streamcraft
// On macOS: ~/Library/Application Support/streamcraft
// On Windows: %LOCALAPPDATA%\streamcraft
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for streamcraft.
// On Linux: ~/.config/streamcraft
// On macOS: ~/Library/Application Support/streamcraft
// On Windows: %APPDATA%\streamcraft
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Recipes) == 0 {
		return ErrNoRecipe
	}

	if c.Steps < 0 {
		return ErrInvalidSteps
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
