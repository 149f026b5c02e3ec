package report

import (
	"io"

	"github.com/nao1215/pageweight/internal/model"
)

// Writer renders a measurement. Implementations differ only in format.
type Writer interface {
	// Write outputs the result and returns the number of bytes written.
	Write(result *model.CrawlResult) (int, error)
}

// MultiWriter writes the same result to several Writers, e.g. to the
// terminal and to a file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all Writers in order and stops at the first error.
func (m *MultiWriter) Write(result *model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// pluralBytes returns "byte" for exactly one byte and "bytes" otherwise.
func pluralBytes(n int64) string {
	if n == 1 {
		return "byte"
	}
	return "bytes"
}
