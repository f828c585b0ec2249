package report

import (
	"io"

	"github.com/nao1215/streamcraft/internal/model"
)

// Writer defines the interface for report output.
// Implementations write run reports in various formats.
//
// Design decision: Write takes the whole slice of reports rather than one
// report at a time. A batch run and the history command both render a
// summary over every run, and a per-report method would leave the writer
// unable to compute it.
type Writer interface {
	// Write outputs the reports and their summary to the configured
	// destination. Nil reports are skipped.
	// Returns the number of bytes written and any error encountered.
	Write(reports []*model.RunReport) (int, error)
}

// Format selects a report writer.
type Format int

const (
	// FormatText selects SimpleWriter.
	FormatText Format = iota
	// FormatJSON selects JSONWriter with indentation.
	FormatJSON
	// FormatMarkdown selects MarkdownWriter.
	FormatMarkdown
)

// New returns the writer for format.
func New(output io.Writer, format Format) Writer {
	switch format {
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint())
	case FormatMarkdown:
		return NewMarkdownWriter(output)
	default:
		return NewSimpleWriter(output)
	}
}

// MultiWriter writes to multiple Writers in order.
//
// Design decision: this is a separate type rather than io.MultiWriter
// because each Writer renders its own format. The same reports are handed
// to every writer instead of the same bytes.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the reports to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(reports []*model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// compact drops nil reports.
func compact(reports []*model.RunReport) []*model.RunReport {
	out := make([]*model.RunReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// statusText returns the status of r, with the error for failed and
// cancelled runs.
func statusText(r *model.RunReport) string {
	if r.ErrorMessage != "" {
		return string(r.Status) + " - " + r.ErrorMessage
	}
	return string(r.Status)
}
