package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/citec-spbu/Transport/internal/database"
	"github.com/citec-spbu/Transport/internal/model"
	"github.com/citec-spbu/Transport/internal/pipeline"
)

// MarkdownWriter outputs a GitHub-flavored Markdown crawl summary.
type MarkdownWriter struct {
	baseWriter
	verbose bool
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithRouteTable adds the per-route outcome table.
func WithRouteTable(enabled bool) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.verbose = enabled
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs one section per result.
func (w *MarkdownWriter) Write(results ...*pipeline.CrawlResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Transit Crawl Report")
	md.PlainText("")

	for _, res := range nonNil(results) {
		s := NewSummary(res)
		w.writeHeader(md, s)
		w.writeOutcomes(md, s)
		w.writeAlert(md, s)
		w.writeWarnings(md, s)
		if w.verbose {
			w.writeRoutes(md, res.Routes)
		}
	}

	w.writeFooter(md)
	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H2(s.City + " (" + s.Mode.String() + ")")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + s.RunID + "`"},
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", s.DurationStr},
			{"Status", statusText(s.Status)},
			{"Stops", strconv.Itoa(s.Nodes)},
			{"Approximate stops", strconv.Itoa(s.ApproximateNodes)},
			{"Segments", strconv.Itoa(s.Edges)},
			{"Routes linked", strconv.Itoa(s.LinkedRoutes)},
		},
	})
	md.PlainText("")
}

func statusText(status string) string {
	switch status {
	case database.RunStatusComplete:
		return "✅ Complete"
	case database.RunStatusPartial:
		return "⚠️ Partial (some routes skipped)"
	case database.RunStatusInterrupted:
		return "⏸️ Interrupted (partial graph)"
	case database.RunStatusFailed:
		return "❌ Failed"
	default:
		return status
	}
}

func (w *MarkdownWriter) writeOutcomes(md *markdown.Markdown, s *Summary) {
	md.H3("Routes")
	md.PlainText("")

	index := "site"
	if s.IndexCached {
		index = "cache"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Outcome", "Count"},
		Rows: [][]string{
			{"Fetched", strconv.Itoa(s.RoutesFetched)},
			{"Cached", strconv.Itoa(s.RoutesCached)},
			{"Skipped", strconv.Itoa(s.RoutesSkipped)},
			{"**Listed**", "**" + strconv.Itoa(s.RoutesTotal) + "**"},
			{"Index source", index},
		},
	})
	md.PlainText("")

	if s.Processed() > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Route Outcomes"),
			piechart.WithShowData(true),
		)
		if s.RoutesFetched > 0 {
			chart.LabelAndIntValue("Fetched", uint64(s.RoutesFetched))
		}
		if s.RoutesCached > 0 {
			chart.LabelAndIntValue("Cached", uint64(s.RoutesCached))
		}
		if s.RoutesSkipped > 0 {
			chart.LabelAndIntValue("Skipped", uint64(s.RoutesSkipped))
		}
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	high := s.SeverityCounts[model.SeverityHigh]
	medium := s.SeverityCounts[model.SeverityMedium]
	switch {
	case s.Status == database.RunStatusFailed:
		md.Cautionf("The crawl produced no graph. %d blocking problem(s) recorded.", high)
	case s.Status == database.RunStatusInterrupted:
		md.Warningf("The crawl was interrupted after %d of %d routes.", s.Processed(), s.RoutesTotal)
	case medium > 0:
		md.Importantf("%d route(s) are missing from the graph.", s.RoutesSkipped)
	case len(s.Warnings) > 0:
		md.Note("Some stops were dropped or placed approximately.")
	default:
		md.Tip("Every listed route was merged into the graph.")
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, s *Summary) {
	if !s.HasWarnings() {
		return
	}
	md.H3("Warnings")
	md.PlainText("")

	rows := make([][]string, 0, len(s.Warnings))
	for _, sev := range severityOrder {
		for _, warn := range model.FilterBySeverity(s.Warnings, sev) {
			rows = append(rows, []string{
				sev.String(),
				string(warn.Kind),
				orDash(warn.Route),
				orDash(warn.Stop),
				truncateString(warn.Message, 80),
			})
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Kind", "Route", "Stop", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRoutes(md *markdown.Markdown, routes []pipeline.RouteOutcome) {
	if len(routes) == 0 {
		return
	}
	rows := make([][]string, len(routes))
	for i, ro := range routes {
		rows[i] = []string{
			ro.Route.Number,
			truncateString(ro.Route.Name, 50),
			string(ro.Outcome),
			strconv.Itoa(ro.Nodes),
			strconv.Itoa(ro.Edges),
		}
	}
	md.Details(fmt.Sprintf("Route details (%d)", len(routes)), markdown.NewMarkdown(io.Discard).Table(markdown.TableSet{
		Header: []string{"Route", "Name", "Outcome", "New stops", "Segments"},
		Rows:   rows,
	}).String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by transitcrawl*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncateString shortens s to at most maxLen runes with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
