package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/matsight/internal/model"
)

// JSONWriter outputs summaries in JSON format.
// This is the download artifact of an analysis.
//
// Design decision: We use standard encoding/json rather than a third-party
// JSON library because the wire format of the analysis service is also
// decoded with it, and the summary must round-trip through the same tags.
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
// This is a convenience wrapper for WithIndent("", "  ").
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

// Write outputs the summary in JSON format.
func (w *JSONWriter) Write(summary *model.Summary) (int, error) {
	return w.writeJSON(summary)
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}

// JSONReport wraps a summary with the version of the tool that produced it.
type JSONReport struct {
	// Version is the MatSight version that generated this summary.
	Version string `json:"version"`

	// Summary is the analysis summary.
	Summary *model.Summary `json:"summary"`
}

// FullJSONWriter outputs summaries wrapped in a JSONReport.
type FullJSONWriter struct {
	*JSONWriter

	// version is the MatSight version string.
	version string
}

// NewFullJSONWriter creates a writer for summaries with version metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs the summary wrapped with metadata.
func (w *FullJSONWriter) Write(summary *model.Summary) (int, error) {
	return w.writeJSON(&JSONReport{Version: w.version, Summary: summary})
}

// BatchJSONReport holds the summaries of one batch render.
type BatchJSONReport struct {
	// Version is the MatSight version that generated these summaries.
	Version string `json:"version"`

	// Summaries are the analysis summaries in completion order.
	Summaries []*model.Summary `json:"summaries"`
}

// BatchJSONWriter collects summaries and writes them as a single JSON
// document on Flush, so a batch produces valid JSON however many analyses
// it renders.
type BatchJSONWriter struct {
	*JSONWriter

	version   string
	summaries []*model.Summary
}

// NewBatchJSONWriter creates a writer that buffers summaries until Flush.
func NewBatchJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *BatchJSONWriter {
	return &BatchJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
		summaries:  []*model.Summary{},
	}
}

// Write buffers the summary. Nothing reaches the output before Flush.
func (w *BatchJSONWriter) Write(summary *model.Summary) (int, error) {
	w.summaries = append(w.summaries, summary)
	return 0, nil
}

// Flush writes every buffered summary as one BatchJSONReport.
func (w *BatchJSONWriter) Flush() (int, error) {
	return w.writeJSON(&BatchJSONReport{Version: w.version, Summaries: w.summaries})
}
