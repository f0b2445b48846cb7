package report

import (
	"io"

	"github.com/citec-spbu/Transport/internal/pipeline"
)

// Writer renders crawl results.
type Writer interface {
	// Write outputs the results and returns the number of bytes written.
	Write(results ...*pipeline.CrawlResult) (int, error)
}

// MultiWriter writes the same results to several Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the results to every writer and stops at the first error.
func (m *MultiWriter) Write(results ...*pipeline.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(results...)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// nonNil drops nil results, which a cancelled batch may contain.
func nonNil(results []*pipeline.CrawlResult) []*pipeline.CrawlResult {
	out := make([]*pipeline.CrawlResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
