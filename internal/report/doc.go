// Package report renders pipeline run reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output for tool integration
//   - MarkdownWriter: GitHub Flavored Markdown for sharing
//
// Design decision: writers only render. Run reports are built by the
// pipeline package and stored by the database package, and the summary is
// computed by model.Summarize, so every format shows the same totals for the
// same slice of reports.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
