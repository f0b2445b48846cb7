package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/citec-spbu/Transport/internal/model"
	"github.com/citec-spbu/Transport/internal/pipeline"
)

// SimpleWriter outputs a plain text summary for the terminal.
type SimpleWriter struct {
	baseWriter

	// showEmpty prints the warning section even when there are none.
	showEmpty bool

	// verbose lists every route outcome.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables the per-route listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one block per result.
func (w *SimpleWriter) Write(results ...*pipeline.CrawlResult) (int, error) {
	var sb strings.Builder
	for _, res := range nonNil(results) {
		s := NewSummary(res)
		w.writeHeader(&sb, s)
		w.writeCounts(&sb, s)
		w.writeWarnings(&sb, s)
		if w.verbose {
			w.writeRoutes(&sb, res.Routes)
		}
		sb.WriteString(strings.Repeat("=", 70))
		sb.WriteString("\n")
	}
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, s *Summary) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	fmt.Fprintf(sb, "TRANSIT CRAWL: %s / %s\n", s.City, s.Mode)
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Run ID:     %s\n", s.RunID)
	fmt.Fprintf(sb, "Started:    %s\n", s.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:   %s\n", s.DurationStr)
	fmt.Fprintf(sb, "Status:     %s\n", strings.ToUpper(s.Status))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCounts(sb *strings.Builder, s *Summary) {
	index := "site"
	if s.IndexCached {
		index = "cache"
	}
	fmt.Fprintf(sb, "  Routes listed:   %d (index from %s)\n", s.RoutesTotal, index)
	fmt.Fprintf(sb, "    fetched:       %d\n", s.RoutesFetched)
	fmt.Fprintf(sb, "    cached:        %d\n", s.RoutesCached)
	fmt.Fprintf(sb, "    skipped:       %d\n", s.RoutesSkipped)
	fmt.Fprintf(sb, "  Stops:           %d (%d approximate)\n", s.Nodes, s.ApproximateNodes)
	fmt.Fprintf(sb, "  Segments:        %d\n", s.Edges)
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeWarnings(sb *strings.Builder, s *Summary) {
	if !s.HasWarnings() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nWARNINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	if !s.HasWarnings() {
		sb.WriteString("  none\n\n")
		return
	}
	for _, sev := range severityOrder {
		for _, warn := range model.FilterBySeverity(s.Warnings, sev) {
			fmt.Fprintf(sb, "  [%s] %s", severityIndicator(sev), warn.Kind)
			if warn.Route != "" {
				fmt.Fprintf(sb, " route=%s", warn.Route)
			}
			if warn.Stop != "" {
				fmt.Fprintf(sb, " stop=%q", warn.Stop)
			}
			if warn.Message != "" {
				fmt.Fprintf(sb, ": %s", warn.Message)
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRoutes(sb *strings.Builder, routes []pipeline.RouteOutcome) {
	if len(routes) == 0 {
		return
	}
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\nROUTES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, ro := range routes {
		fmt.Fprintf(sb, "  %-8s %-8s +%d stops +%d segments  %s\n",
			ro.Route.Number, ro.Outcome, ro.Nodes, ro.Edges, ro.Route.Name)
	}
	sb.WriteString("\n")
}

func severityIndicator(sev model.Severity) string {
	switch sev {
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}
