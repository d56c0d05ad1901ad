// Package report builds and writes analysis summaries.
//
// NewSummary turns an analysis result and its palette into a model.Summary,
// the downloadable description of what each label means and how much of the
// image it covers. Writers then render the summary in different formats:
//   - SimpleWriter: Human-readable text output for terminal display
//   - JSONWriter: Structured JSON output, the download artifact
//   - MarkdownWriter: GitHub Flavored Markdown with tables and a pie chart
//
// Design decision: We separate report writing from report data structures
// (which are in the model package) to follow the single responsibility
// principle. This allows adding new output formats without modifying
// the core data structures.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
