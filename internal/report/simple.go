package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/streamcraft/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: plain text without ANSI colors. The report is often
// redirected to a file or piped to grep, and escape codes would end up in
// the output.
type SimpleWriter struct {
	baseWriter

	// verbose adds the pipeline ID and start time of every run.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the reports in human-readable format.
func (w *SimpleWriter) Write(reports []*model.RunReport) (int, error) {
	reports = compact(reports)

	var sb strings.Builder
	w.writeHeader(&sb)
	for _, r := range reports {
		w.writeRun(&sb, r)
	}
	w.writeSummary(&sb, model.Summarize(reports))

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                       STREAMCRAFT RUN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeRun(sb *strings.Builder, r *model.RunReport) {
	fmt.Fprintf(sb, "Pipeline: %s\n", r.Name)
	if w.verbose {
		fmt.Fprintf(sb, "  ID:       %s\n", r.PipelineID)
		fmt.Fprintf(sb, "  Started:  %s\n", r.Started.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(sb, "  Status:   %s\n", strings.ToUpper(statusText(r)))
	fmt.Fprintf(sb, "  Steps:    %d\n", r.Steps)
	fmt.Fprintf(sb, "  Duration: %s\n\n", r.Duration.Round(time.Millisecond))
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("SUMMARY\n")
	fmt.Fprintf(sb, "  Runs:      %d\n", s.Runs)
	fmt.Fprintf(sb, "  Exhausted: %d\n", s.Exhausted)
	fmt.Fprintf(sb, "  Failed:    %d\n", s.Failed)
	fmt.Fprintf(sb, "  Steps:     %d\n", s.Steps)
}
