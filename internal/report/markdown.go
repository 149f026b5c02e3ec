package report

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/pageweight/internal/model"
)

// MarkdownWriter outputs results as GitHub flavoured Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the result in Markdown format.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, result)
	w.writeBreakdown(md, result)
	w.writeResources(md, result)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, result *model.CrawlResult) {
	total := result.TotalBytes()

	md.H1("Page Weight Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + result.URL + "`"},
			{"Measured", result.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"HTTP Requests", strconv.Itoa(result.RequestCount)},
			{"Total Size", fmt.Sprintf("%d %s (%s)", total, pluralBytes(total), humanize.Bytes(uint64(total)))}, //nolint:gosec // sizes are never negative
			{"Failed Requests", strconv.Itoa(result.FailedCount())},
			{"Duration", result.Duration.Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	if failed := result.FailedCount(); failed > 0 {
		md.Warningf("%d request(s) failed. Their size is reported as 0 bytes.", failed)
	} else {
		md.Tip("All requests succeeded.")
	}
	md.PlainText("")
}

// writeBreakdown writes the size per mime type as a table and a pie chart.
func (w *MarkdownWriter) writeBreakdown(md *markdown.Markdown, result *model.CrawlResult) {
	byMime := result.BytesByMimeType()
	if len(byMime) == 0 {
		return
	}

	mimeTypes := make([]string, 0, len(byMime))
	for mime := range byMime {
		mimeTypes = append(mimeTypes, mime)
	}
	// Largest first; ties by name so the output is stable.
	slices.SortFunc(mimeTypes, func(a, b string) int {
		if byMime[a] != byMime[b] {
			if byMime[a] > byMime[b] {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})

	md.H2("Size by Content Type")
	md.PlainText("")

	rows := make([][]string, 0, len(mimeTypes))
	for _, mime := range mimeTypes {
		rows = append(rows, []string{mime, strconv.FormatInt(byMime[mime], 10)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Mime Type", "Bytes"},
		Rows:   rows,
	})
	md.PlainText("")

	if result.TotalBytes() == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Download Size by Content Type"),
		piechart.WithShowData(true),
	)
	for _, mime := range mimeTypes {
		if byMime[mime] > 0 {
			chart.LabelAndIntValue(mime, uint64(byMime[mime])) //nolint:gosec // sizes are never negative
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeResources writes every node in crawl order. Depth is shown both as a
// column and as indentation of the URL.
func (w *MarkdownWriter) writeResources(md *markdown.Markdown, result *model.CrawlResult) {
	md.H2("Resources")
	md.PlainText("")

	if result.Root == nil {
		md.PlainText("No resources were fetched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0)
	result.Root.Walk(func(n *model.ReportNode, depth int) {
		status := "ok"
		if n.Failed() {
			status = "failed: " + n.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(depth),
			strings.Repeat("&nbsp;&nbsp;", depth) + escapeCell(n.URL),
			n.MimeType,
			strconv.FormatInt(n.DownloadSize, 10),
			escapeCell(status),
		})
	})

	md.Table(markdown.TableSet{
		Header: []string{"Depth", "URL", "Mime Type", "Bytes", "Status"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [pageweight](https://github.com/nao1215/pageweight)*")
}

// escapeCell keeps pipes in URLs from breaking the table.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
