package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/matsight/internal/model"
)

// MarkdownWriter outputs summaries in Markdown format.
// This format is designed for lab notebooks and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, alerts, and code blocks
// 3. Mermaid pie charts for the label share
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the summary in Markdown format.
func (w *MarkdownWriter) Write(summary *model.Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, summary)
	w.writeLabels(md, summary)
	w.writeFlakes(md, summary)
	w.writeParameters(md, summary)
	w.writeMetadata(md, summary)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the summary header with analysis information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, summary *model.Summary) {
	md.H1("MatSight Analysis Summary")
	md.PlainText("")

	rows := [][]string{
		{"Image", "`" + summary.ImageKey + "`"},
		{"Analysis", kindTitle(summary.Kind)},
		{"Generated", summary.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	if summary.AnalysisID != "" {
		rows = append(rows, []string{"Analysis ID", "`" + summary.AnalysisID + "`"})
	}
	if summary.Width > 0 && summary.Height > 0 {
		rows = append(rows, []string{"Dimensions", fmt.Sprintf("%d x %d px", summary.Width, summary.Height)})
	}
	rows = append(rows, []string{"Distinct Layers", strconv.Itoa(summary.Count)})
	if summary.Kind == model.KindRegionList.String() {
		rows = append(rows, []string{"Total Flakes", strconv.Itoa(summary.TotalFlakes)})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLabels writes the legend table, a pie chart of the pixel share, and
// an alert for labels whose colour had to be generated.
func (w *MarkdownWriter) writeLabels(md *markdown.Markdown, summary *model.Summary) {
	md.H2("Legend")
	md.PlainText("")

	if len(summary.Labels) == 0 {
		md.Note("No layers were detected in this image.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Labels))
	synthetic := 0
	for _, l := range summary.Labels {
		colour := "`" + l.Color + "`"
		if l.Synthetic {
			colour += " (generated)"
			synthetic++
		}
		rows = append(rows, []string{
			l.Description,
			colour,
			strconv.Itoa(l.PixelCount),
			formatPercent(l.Percentage),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Layer", "Colour", "Pixels", "Share"},
		Rows:   rows,
	})
	md.PlainText("")

	w.writePieChart(md, summary)

	if synthetic > 0 {
		md.Warningf("%d label(s) had no pixels in the processed image; their colours were generated.", synthetic)
		md.PlainText("")
	}
}

// writePieChart writes a mermaid pie chart of the pixel share per label.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, summary *model.Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pixel Share by Layer"),
		piechart.WithShowData(true),
	)

	plotted := 0
	for _, l := range summary.Labels {
		if l.PixelCount <= 0 {
			continue
		}
		chart.LabelAndIntValue(l.Description, uint64(l.PixelCount))
		plotted++
	}
	if plotted == 0 {
		return
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFlakes writes the per-thickness flake statistics of a region list.
func (w *MarkdownWriter) writeFlakes(md *markdown.Markdown, summary *model.Summary) {
	if summary.Kind != model.KindRegionList.String() {
		return
	}

	md.H2("Flake Statistics")
	md.PlainText("")

	if summary.TotalFlakes == 0 {
		md.Tip("No flakes were detected.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Labels))
	listed := 0
	for _, l := range summary.Labels {
		listed += l.FlakeCount
		rows = append(rows, []string{
			l.Description,
			strconv.Itoa(l.FlakeCount),
			formatFloat(l.TotalSize),
			formatFloat(l.MeanSize),
			formatFloat(l.MeanAspectRatio),
			formatPercent(l.MeanFalsePositive * 100),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Layer", "Flakes", "Total Size", "Mean Size", "Mean Aspect Ratio", "Mean False Positive"},
		Rows:   rows,
	})
	md.PlainText("")

	if listed != summary.TotalFlakes {
		md.Notef("The service reported %d flakes; %d are listed.", summary.TotalFlakes, listed)
		md.PlainText("")
	}
}

// writeParameters writes the detection parameters echoed by the service.
func (w *MarkdownWriter) writeParameters(md *markdown.Markdown, summary *model.Summary) {
	if len(summary.DetectionParameters) == 0 {
		return
	}

	md.H2("Detection Parameters")
	md.PlainText("")

	keys := make([]string, 0, len(summary.DetectionParameters))
	for k := range summary.DetectionParameters {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{parameterTitle(k), fmt.Sprint(summary.DetectionParameters[k])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Parameter", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMetadata writes the sample metadata, collapsed.
func (w *MarkdownWriter) writeMetadata(md *markdown.Markdown, summary *model.Summary) {
	if len(summary.Metadata) == 0 {
		return
	}

	keys := make([]string, 0, len(summary.Metadata))
	for k := range summary.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+": "+summary.Metadata[k])
	}
	md.Details("Sample Metadata", strings.Join(lines, "\n"))
	md.PlainText("")
}

// writeFooter writes the summary footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Summary generated by [MatSight](https://github.com/nao1215/matsight)*")
}

// parameterTitle turns a parameter key such as "min_area" into "Min Area".
func parameterTitle(key string) string {
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// kindTitle returns the display name of an analysis kind.
func kindTitle(kind string) string {
	switch kind {
	case model.KindLabelGrid.String():
		return "Label Grid"
	case model.KindRegionList.String():
		return "Region List"
	default:
		return kind
	}
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64) + "%"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
