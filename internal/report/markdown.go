package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/streamcraft/internal/model"
)

// MarkdownWriter outputs reports in GitHub Flavored Markdown using the
// nao1215/markdown builder.
//
// Design decision: the builder collects the whole document and writes it
// to the output once, on Build. The status breakdown is drawn as a mermaid
// pie chart, which GitHub renders inline.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the reports in Markdown format.
func (w *MarkdownWriter) Write(reports []*model.RunReport) (int, error) {
	reports = compact(reports)
	summary := model.Summarize(reports)
	md := markdown.NewMarkdown(w.output)

	md.H1("Streamcraft Run Report")
	md.PlainText("")

	w.writeSummary(md, reports, summary)
	w.writeRuns(md, reports)
	w.writeErrors(md, reports)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, reports []*model.RunReport, s model.Summary) {
	md.H2("Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Runs", strconv.Itoa(s.Runs)},
			{"Exhausted", strconv.Itoa(s.Exhausted)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Steps", strconv.Itoa(s.Steps)},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if s.Runs > 1 {
		w.writePieChart(md, reports)
	}

	switch {
	case s.Failed > 0:
		md.Warningf("%d of %d pipeline run(s) failed.", s.Failed, s.Runs)
	case s.Runs == 0:
		md.Note("No pipelines were run.")
	default:
		md.Tip("All pipeline runs finished without errors.")
	}
	md.PlainText("")
}

// writePieChart writes a mermaid pie chart of run statuses.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, reports []*model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Run Status"),
		piechart.WithShowData(true),
	)

	counts := make(map[model.Status]uint64)
	for _, r := range reports {
		counts[r.Status]++
	}
	for _, st := range []model.Status{model.StatusExhausted, model.StatusStepLimit, model.StatusCancelled, model.StatusFailed} {
		if counts[st] > 0 {
			chart.LabelAndIntValue(string(st), counts[st])
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeRuns(md *markdown.Markdown, reports []*model.RunReport) {
	md.H2("Runs")
	md.PlainText("")

	if len(reports) == 0 {
		md.PlainText("No runs recorded.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(reports))
	for i, r := range reports {
		rows[i] = []string{
			r.Name,
			statusIcon(r.Status) + " " + string(r.Status),
			strconv.Itoa(r.Steps),
			r.Duration.Round(time.Millisecond).String(),
			"`" + r.PipelineID + "`",
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Pipeline", "Status", "Steps", "Duration", "ID"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeErrors writes one collapsible section per run that ended with an
// error.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, reports []*model.RunReport) {
	var failed []*model.RunReport
	for _, r := range reports {
		if r.ErrorMessage != "" {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")
	for _, r := range failed {
		md.Details(r.Name, r.ErrorMessage)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by streamcraft*")
}

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusExhausted:
		return "✅"
	case model.StatusStepLimit:
		return "⏹️"
	case model.StatusCancelled:
		return "⚠️"
	default:
		return "❌"
	}
}
