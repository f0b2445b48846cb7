package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/citec-spbu/Transport/internal/model"
	"github.com/citec-spbu/Transport/internal/pipeline"
)

// JSONWriter outputs graphs in the loader's format: one object for a
// single crawl, an array for several.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
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

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the graph of every result.
func (w *JSONWriter) Write(results ...*pipeline.CrawlResult) (int, error) {
	results = nonNil(results)
	exports := make([]model.GraphExport, len(results))
	for i, res := range results {
		exports[i] = res.Graph.Export()
	}
	if len(exports) == 1 {
		return w.writeJSON(exports[0])
	}
	return w.writeJSON(exports)
}

// writeJSON encodes v without HTML escaping so stop names stay readable.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}
	if err := enc.Encode(v); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}

// JSONReport is one crawl with its metadata.
type JSONReport struct {
	Version string                  `json:"version"`
	Summary *Summary                `json:"summary"`
	Routes  []pipeline.RouteOutcome `json:"routes"`
	Graph   model.GraphExport       `json:"graph"`
}

// NewJSONReport wraps res with version information.
func NewJSONReport(res *pipeline.CrawlResult, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Summary: NewSummary(res),
		Routes:  res.Routes,
		Graph:   res.Graph.Export(),
	}
}

// FullJSONWriter outputs graphs together with run metadata.
type FullJSONWriter struct {
	*JSONWriter
	version string
}

// NewFullJSONWriter creates a writer for complete reports with metadata.
func NewFullJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *FullJSONWriter {
	return &FullJSONWriter{
		JSONWriter: NewJSONWriter(output, opts...),
		version:    version,
	}
}

// Write outputs every result wrapped with metadata.
func (w *FullJSONWriter) Write(results ...*pipeline.CrawlResult) (int, error) {
	results = nonNil(results)
	reports := make([]*JSONReport, len(results))
	for i, res := range results {
		reports[i] = NewJSONReport(res, w.version)
	}
	if len(reports) == 1 {
		return w.writeJSON(reports[0])
	}
	return w.writeJSON(reports)
}
