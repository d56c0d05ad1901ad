package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nao1215/matsight/internal/model"
)

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display with clear section formatting.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors because it works in all terminals and is easy to pipe to
// files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with parameters and metadata.
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

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(summary *model.Summary) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, summary)
	w.writeLegend(&sb, summary)
	if w.verbose {
		w.writeDetails(&sb, summary)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the summary header with analysis information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      MATSIGHT ANALYSIS SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Image:       %s\n", summary.ImageKey)
	fmt.Fprintf(sb, "Analysis:    %s\n", kindTitle(summary.Kind))
	if summary.Width > 0 && summary.Height > 0 {
		fmt.Fprintf(sb, "Dimensions:  %d x %d px\n", summary.Width, summary.Height)
	}
	fmt.Fprintf(sb, "Layers:      %d\n", summary.Count)
	if summary.Kind == model.KindRegionList.String() {
		fmt.Fprintf(sb, "Flakes:      %d\n", summary.TotalFlakes)
	}
	sb.WriteString("\n")
}

// writeLegend writes one line per label.
func (w *SimpleWriter) writeLegend(sb *strings.Builder, summary *model.Summary) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("LEGEND\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(summary.Labels) == 0 {
		sb.WriteString("  No layers detected\n\n")
		return
	}

	for _, l := range summary.Labels {
		marker := " "
		if l.Synthetic {
			marker = "*"
		}
		fmt.Fprintf(sb, "  %s%s  %-14s %9d px  %6.2f%%", marker, l.Color, l.Description, l.PixelCount, l.Percentage)
		if l.FlakeCount > 0 {
			fmt.Fprintf(sb, "  %d flake(s), mean size %.2f", l.FlakeCount, l.MeanSize)
		}
		sb.WriteString("\n")
	}
	if slices.ContainsFunc(summary.Labels, func(l model.LabelSummary) bool { return l.Synthetic }) {
		sb.WriteString("\n  * colour generated: no pixel carried this label\n")
	}
	sb.WriteString("\n")
}

// writeDetails writes detection parameters and sample metadata.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, summary *model.Summary) {
	if len(summary.DetectionParameters) > 0 {
		sb.WriteString("Detection parameters:\n")
		keys := make([]string, 0, len(summary.DetectionParameters))
		for k := range summary.DetectionParameters {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(sb, "  %s: %v\n", k, summary.DetectionParameters[k])
		}
		sb.WriteString("\n")
	}

	if len(summary.Metadata) > 0 {
		sb.WriteString("Sample metadata:\n")
		keys := make([]string, 0, len(summary.Metadata))
		for k := range summary.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Fprintf(sb, "  %s: %s\n", k, summary.Metadata[k])
		}
		sb.WriteString("\n")
	}
}

// writeFooter writes the summary footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
