package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/streamcraft/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
//
// Design decision: the output is a single document holding the summary and
// the runs, not one JSON object per run. Tools read it with one decode
// call, and the run --json output of a single recipe has the same shape as
// a batch.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// document is the JSON layout: the summary followed by every run.
// Runs is never null, since compact always returns a non-nil slice.
type document struct {
	Summary model.Summary      `json:"summary"`
	Runs    []*model.RunReport `json:"runs"`
}

// Write outputs the reports in JSON format.
func (w *JSONWriter) Write(reports []*model.RunReport) (int, error) {
	reports = compact(reports)
	doc := document{Summary: model.Summarize(reports), Runs: reports}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(doc, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
