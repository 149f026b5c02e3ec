package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/nao1215/pageweight/internal/model"
)

// SimpleWriter outputs one line per resource, indented by depth:
//
//	URL: https://example.com/ Mime Type: text/html Size: 5120 bytes
//	 URL: https://example.com/logo.png Mime Type: image/png Size: 2048 bytes
//	Total HTTP request count: 2
type SimpleWriter struct {
	baseWriter

	colored bool
	summary bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithColor enables ANSI colours regardless of the terminal.
func WithColor(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.colored = enabled
	}
}

// WithSummary adds total size and failure lines after the request count.
func WithSummary(enabled bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.summary = enabled
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		summary:    true,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// palette holds the colour functions for one Write call.
type palette struct {
	url     func(a ...interface{}) string
	size    func(a ...interface{}) string
	failure func(a ...interface{}) string
	total   func(a ...interface{}) string
}

func (w *SimpleWriter) palette() palette {
	newColor := func(attr color.Attribute) func(a ...interface{}) string {
		c := color.New(attr)
		if w.colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintFunc()
	}

	return palette{
		url:     newColor(color.FgCyan),
		size:    newColor(color.FgYellow),
		failure: newColor(color.FgRed),
		total:   newColor(color.FgGreen),
	}
}

// Write outputs every node followed by the totals.
func (w *SimpleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder
	p := w.palette()

	if result.Root != nil {
		result.Root.Walk(func(n *model.ReportNode, depth int) {
			w.writeNode(&sb, p, n, depth)
		})
	}

	fmt.Fprintf(&sb, "Total HTTP request count: %s\n", p.total(result.RequestCount))

	if w.summary {
		total := result.TotalBytes()
		fmt.Fprintf(&sb, "Total download size: %s (%s)\n",
			p.total(fmt.Sprintf("%d %s", total, pluralBytes(total))),
			humanize.Bytes(uint64(total)), //nolint:gosec // sizes are never negative
		)
		if failed := result.FailedCount(); failed > 0 {
			fmt.Fprintf(&sb, "Failed requests: %s\n", p.failure(failed))
		}
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeNode(sb *strings.Builder, p palette, n *model.ReportNode, depth int) {
	sb.WriteString(strings.Repeat(" ", depth))
	fmt.Fprintf(sb, "URL: %s Mime Type: %s Size: %s",
		p.url(n.URL),
		n.MimeType,
		p.size(fmt.Sprintf("%d %s", n.DownloadSize, pluralBytes(n.DownloadSize))),
	)
	if n.Failed() {
		sb.WriteString(" ")
		sb.WriteString(p.failure("(failed: " + n.Error + ")"))
	}
	sb.WriteString("\n")
}
