package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/pageweight/internal/model"
)

// JSONWriter outputs results in JSON format.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
	version      string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the generating tool version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
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

// JSONReport wraps a result with summary figures and metadata.
type JSONReport struct {
	// Version is the pageweight version that generated this report.
	Version string `json:"version,omitempty"`

	// Summary holds the totals of the tree.
	Summary JSONSummary `json:"summary"`

	// Result is the full measurement.
	Result *model.CrawlResult `json:"result"`
}

// JSONSummary holds the totals of a measurement.
type JSONSummary struct {
	RequestCount    int              `json:"request_count"`
	TotalBytes      int64            `json:"total_bytes"`
	FailedRequests  int              `json:"failed_requests"`
	BytesByMimeType map[string]int64 `json:"bytes_by_mime_type"`
}

// NewJSONReport builds the JSON document for result.
func NewJSONReport(result *model.CrawlResult, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: JSONSummary{
			RequestCount:    result.RequestCount,
			TotalBytes:      result.TotalBytes(),
			FailedRequests:  result.FailedCount(),
			BytesByMimeType: result.BytesByMimeType(),
		},
		Result: result,
	}
}

// Write outputs the result wrapped in a JSONReport.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.writeJSON(NewJSONReport(result, w.version))
}

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

	data = append(data, '\n')
	return w.output.Write(data)
}
