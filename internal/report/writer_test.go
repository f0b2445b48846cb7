package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/citec-spbu/Transport/internal/database"
	"github.com/citec-spbu/Transport/internal/graph"
	"github.com/citec-spbu/Transport/internal/model"
	"github.com/citec-spbu/Transport/internal/pipeline"
)

// createTestResult returns a finished crawl with two merged routes, one
// skipped route and a few warnings.
func createTestResult() *pipeline.CrawlResult {
	res := pipeline.NewCrawlResult("run-1", "Perm", model.ModeBus, true)
	res.StartedAt = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	res.FinishedAt = res.StartedAt.Add(90 * time.Second)
	res.Status = database.RunStatusPartial
	res.Index = []model.RouteRef{
		{Number: "1", Name: "Центр - Депо", URL: "/perm/bus/1"},
		{Number: "2", Name: "Depot <loop>", URL: "/perm/bus/2"},
		{Number: "3", Name: "Broken", URL: "/perm/bus/3"},
	}

	coords := map[string]model.Coordinate{
		"Центр": model.NewCoordinate(56.25, 58.01),
		"Депо":  model.NewCoordinate(56.30, 58.02),
	}
	r1, _ := graph.Assemble("1", "/perm/bus/1", []model.TimetableEntry{
		{StopName: "Центр", TimePoint: "10:00"},
		{StopName: "Депо", TimePoint: "10:12"},
		{StopName: "Parking", TimePoint: "10:15"},
	}, coords, graph.Options{})
	n, e := graph.Merge(res.Graph, r1)
	res.Routes = append(res.Routes,
		pipeline.RouteOutcome{Route: res.Index[0], Outcome: pipeline.OutcomeFetched, Nodes: n, Edges: e},
		pipeline.RouteOutcome{Route: res.Index[1], Outcome: pipeline.OutcomeCached},
		pipeline.RouteOutcome{Route: res.Index[2], Outcome: pipeline.OutcomeSkipped},
	)
	res.Warnings = append(res.Warnings,
		model.Warning{Kind: model.WarningStopDropped, Route: "1", Stop: "Ghost", Message: "no coordinate"},
		model.Warning{Kind: model.WarningRouteSkipped, Route: "3", Message: "timetable unavailable"},
	)
	return res
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	s := NewSummary(createTestResult())

	if s.RoutesTotal != 3 || s.RoutesFetched != 1 || s.RoutesCached != 1 || s.RoutesSkipped != 1 {
		t.Errorf("route counts = %+v", s)
	}
	if s.Nodes != 3 || s.Edges != 2 || s.ApproximateNodes != 1 || s.LinkedRoutes != 1 {
		t.Errorf("graph counts: nodes %d edges %d approx %d routes %d", s.Nodes, s.Edges, s.ApproximateNodes, s.LinkedRoutes)
	}
	if s.DurationStr != "1m30s" {
		t.Errorf("duration = %q", s.DurationStr)
	}
	if s.SeverityCounts[model.SeverityMedium] != 1 || s.SeverityCounts[model.SeverityLow] != 1 {
		t.Errorf("severity counts = %v", s.SeverityCounts)
	}
	if s.Processed() != 3 {
		t.Errorf("Processed() = %d", s.Processed())
	}
}

func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header, counts and warnings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"TRANSIT CRAWL: Perm / bus",
			"Status:     PARTIAL",
			"skipped:       1",
			"Stops:           3 (1 approximate)",
			"[!] route_skipped route=3: timetable unavailable",
			`[-] stop_dropped route=1 stop="Ghost"`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q:\n%s", want, output)
			}
		}
		if strings.Index(output, "route_skipped") > strings.Index(output, "stop_dropped") {
			t.Error("warnings should be ordered by severity")
		}
		if strings.Contains(output, "ROUTES") {
			t.Error("route list is verbose only")
		}
	})

	t.Run("verbose lists routes", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "ROUTES") || !strings.Contains(buf.String(), "Центр - Депо") {
			t.Errorf("route list missing:\n%s", buf.String())
		}
	})

	t.Run("show empty prints the warning section", func(t *testing.T) {
		t.Parallel()

		res := createTestResult()
		res.Warnings = nil

		var quiet, loud bytes.Buffer
		if _, err := NewSimpleWriter(&quiet).Write(res); err != nil {
			t.Fatal(err)
		}
		if _, err := NewSimpleWriter(&loud, WithShowEmpty(true)).Write(res); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(quiet.String(), "WARNINGS") {
			t.Error("empty warning section should be hidden")
		}
		if !strings.Contains(loud.String(), "none") {
			t.Error("empty warning section should be shown")
		}
	})

	t.Run("skips nil results", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(nil, createTestResult(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if n != buf.Len() || strings.Count(buf.String(), "TRANSIT CRAWL") != 1 {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("single result is a loader object", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithPrettyPrint()).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}

		var export model.GraphExport
		if err := json.Unmarshal(buf.Bytes(), &export); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if export.NodeLabel != "PermBusStop" || export.RelationshipLabel != "PermBusRouteSegment" {
			t.Errorf("labels = %q, %q", export.NodeLabel, export.RelationshipLabel)
		}
		if len(export.Nodes) != 3 || len(export.Relationships) != 2 {
			t.Errorf("export has %d nodes, %d relationships", len(export.Nodes), len(export.Relationships))
		}
		if !strings.Contains(buf.String(), "Центр") {
			t.Error("non-ASCII names should be written verbatim")
		}
		if !strings.Contains(buf.String(), `"routeList"`) || !strings.Contains(buf.String(), `"startStop"`) {
			t.Error("loader field names missing")
		}
	})

	t.Run("several results form an array", func(t *testing.T) {
		t.Parallel()

		tram := pipeline.NewCrawlResult("run-2", "Perm", model.ModeTram, true)

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult(), tram); err != nil {
			t.Fatal(err)
		}
		var exports []model.GraphExport
		if err := json.Unmarshal(buf.Bytes(), &exports); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(exports) != 2 || exports[1].Mode != "tram" {
			t.Errorf("exports = %+v", exports)
		}
		if exports[1].Nodes == nil || exports[1].Relationships == nil {
			t.Error("empty graph should export empty lists")
		}
	})

	t.Run("compact output is a single line", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Errorf("expected one trailing newline, got %q", buf.String())
		}
	})
}

func TestFullJSONWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if _, err := NewFullJSONWriter(&buf, "v1.2.3", WithPrettyPrint()).Write(createTestResult()); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Version string                  `json:"version"`
		Summary map[string]any          `json:"summary"`
		Routes  []pipeline.RouteOutcome `json:"routes"`
		Graph   model.GraphExport       `json:"graph"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Version != "v1.2.3" {
		t.Errorf("version = %q", got.Version)
	}
	if got.Summary["status"] != database.RunStatusPartial || got.Summary["mode"] != "bus" {
		t.Errorf("summary = %v", got.Summary)
	}
	if len(got.Routes) != 3 || got.Routes[0].Route.Number != "1" {
		t.Errorf("routes = %+v", got.Routes)
	}
	if len(got.Graph.Nodes) != 3 {
		t.Errorf("graph nodes = %d", len(got.Graph.Nodes))
	}
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders summary, chart and warnings", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Transit Crawl Report",
			"## Perm (bus)",
			"⚠️ Partial",
			"```mermaid",
			"pie",
			"route_skipped",
			"[!IMPORTANT]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("output missing %q:\n%s", want, output)
			}
		}
		if strings.Contains(output, "Route details") {
			t.Error("route table is opt-in")
		}
	})

	t.Run("route table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf, WithRouteTable(true)).Write(createTestResult()); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "Route details (3)") {
			t.Errorf("route details missing:\n%s", buf.String())
		}
	})

	tests := []struct {
		name   string
		status string
		want   string
	}{
		{"failed crawl", database.RunStatusFailed, "[!CAUTION]"},
		{"interrupted crawl", database.RunStatusInterrupted, "[!WARNING]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := createTestResult()
			res.Status = tt.status

			var buf bytes.Buffer
			if _, err := NewMarkdownWriter(&buf).Write(res); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output missing %q", tt.want)
			}
		})
	}

	t.Run("clean crawl gets a tip", func(t *testing.T) {
		t.Parallel()

		res := pipeline.NewCrawlResult("run-3", "Kazan", model.ModeTram, false)
		res.Status = database.RunStatusComplete

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(res); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") {
			t.Errorf("output missing tip:\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("no chart without processed routes")
		}
	})
}

// failingWriter always fails.
type failingWriter struct{}

func (failingWriter) Write(...*pipeline.CrawlResult) (int, error) {
	return 0, errors.New("disk full")
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	mw := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
	n, err := mw.Write(createTestResult())
	if err != nil {
		t.Fatal(err)
	}
	if n != a.Len()+b.Len() || a.Len() == 0 || b.Len() == 0 {
		t.Errorf("wrote %d bytes, buffers %d and %d", n, a.Len(), b.Len())
	}

	var c bytes.Buffer
	_, err = NewMultiWriter(failingWriter{}, NewSimpleWriter(&c)).Write(createTestResult())
	if err == nil || c.Len() != 0 {
		t.Error("MultiWriter should stop at the first error")
	}
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"Остановка Центральная", 10, "Останов..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
