package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/citec-spbu/Transport/internal/database"
	"github.com/citec-spbu/Transport/internal/model"
)

// Constants for graph change direction.
const (
	changeGrown     = "grown"
	changeShrunk    = "shrunk"
	changeUnchanged = "unchanged"
	changeReshaped  = "reshaped"
)

// NewHistoryCmd creates the history command.
// It lists stored crawl runs and compares the graphs of two runs.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [city]",
		Short: "List stored crawl runs and compare their graphs",
		Long: `History lists the crawl runs recorded in the database, newest first.

With --compare, the graphs of the latest two runs of a city and mode are
compared: stops and segments that appeared or disappeared, and segments
whose duration changed.

Examples:
  # All recorded runs
  transitcrawl history

  # Runs of the Perm tram network
  transitcrawl history --mode tram Пермь

  # What changed between the last two bus crawls of Perm
  transitcrawl history --compare Пермь

  # Compare the latest run with a specific one
  transitcrawl history --compare --with-run 6f1c... Пермь`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("mode", "M", "", "Only runs of this transport mode (default bus with --compare)")
	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs to list (0 for all)")

	cmd.Flags().Bool("compare", false, "Compare the graphs of the latest two runs")
	cmd.Flags().String("with-run", "", "Compare the latest run with this run ID instead")

	cmd.Flags().BoolP("json", "j", false, "Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false, "Output comparison result in Markdown format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	withRun, err := cmd.Flags().GetString("with-run")
	if err != nil {
		return err
	}
	modeName, err := cmd.Flags().GetString("mode")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var city string
	if len(args) == 1 {
		city = strings.TrimSpace(args[0])
	}
	if (compare || withRun != "") && city == "" {
		return errors.New("a city is required for --compare")
	}
	if jsonOutput && markdownOutput {
		return errors.New("--json and --markdown cannot be used together")
	}

	var mode string
	if modeName != "" {
		m, err := model.ParseTransportMode(modeName)
		if err != nil {
			return err
		}
		mode = m.String()
	} else if compare || withRun != "" {
		mode = model.ModeBus.String()
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	out := cmd.OutOrStdout()

	if !compare && withRun == "" {
		return listCrawlRuns(ctx, out, db, city, mode, limit)
	}

	diff, err := compareRuns(ctx, db, city, mode, withRun)
	if err != nil {
		return err
	}
	switch {
	case jsonOutput:
		enc := json.NewEncoder(out)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(diff)
	case markdownOutput:
		return writeDiffMarkdown(out, diff)
	default:
		writeDiffText(out, diff)
		return nil
	}
}

// listCrawlRuns prints the run table.
func listCrawlRuns(ctx context.Context, w io.Writer, db *database.CrawlDB, city, mode string, limit int) error {
	runs, err := db.ListCrawlRuns(ctx, city, mode, limit)
	if err != nil {
		return fmt.Errorf("failed to list crawl runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No crawl runs found in the database.")
		fmt.Fprintln(w, "\nUse 'transitcrawl crawl <city>' to build a graph.")
		return nil
	}

	fmt.Fprintf(w, "Crawl runs (%d):\n\n", len(runs))
	fmt.Fprintf(w, "  %-36s  %-19s  %-16s  %-11s  %6s  %6s  %s\n",
		"Run ID", "Started", "City/Mode", "Status", "Stops", "Segs", "Routes f/c/s")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 118))

	for _, run := range runs {
		fmt.Fprintf(w, "  %-36s  %-19s  %-16s  %-11s  %6d  %6d  %d/%d/%d\n",
			run.RunID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.City+"/"+run.Mode,
			run.Status,
			run.NodeCount,
			run.EdgeCount,
			run.RoutesFetched, run.RoutesCached, run.RoutesSkipped,
		)
	}

	fmt.Fprintln(w, "\nUse 'transitcrawl history --compare <city>' to compare the latest two runs.")
	return nil
}

// RunMetadata describes one side of a comparison.
type RunMetadata struct {
	RunID    string `json:"run_id"`
	Started  string `json:"started"`
	Status   string `json:"status"`
	Stops    int    `json:"stops"`
	Segments int    `json:"segments"`
}

// DurationChange is a segment present in both runs with a different duration.
type DurationChange struct {
	Segment  string `json:"segment"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
}

// GraphDiff is the difference between the graphs of two runs.
type GraphDiff struct {
	City     string      `json:"city"`
	Mode     string      `json:"mode"`
	Previous RunMetadata `json:"previous_run"`
	Current  RunMetadata `json:"current_run"`

	AddedStops   []string `json:"added_stops,omitempty"`
	RemovedStops []string `json:"removed_stops,omitempty"`

	AddedSegments   []string         `json:"added_segments,omitempty"`
	RemovedSegments []string         `json:"removed_segments,omitempty"`
	ChangedSegments []DurationChange `json:"changed_segments,omitempty"`

	UnchangedStops    int    `json:"unchanged_stops"`
	UnchangedSegments int    `json:"unchanged_segments"`
	Direction         string `json:"direction"`
}

// compareRuns loads the latest run and the run to compare it with.
func compareRuns(ctx context.Context, db *database.CrawlDB, city, mode, withRun string) (*GraphDiff, error) {
	runs, err := db.ListCrawlRuns(ctx, city, mode, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("no crawl runs found for %s/%s", city, mode)
	}
	if len(runs) < 2 && withRun == "" {
		return nil, fmt.Errorf("at least 2 runs are required for comparison (found %d)", len(runs))
	}

	current, err := db.GetCrawlRun(ctx, runs[0].RunID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("run %s not found", runs[0].RunID)
	}

	previousID := withRun
	if previousID == "" {
		previousID = runs[1].RunID
	}
	if previousID == current.RunID {
		return nil, errors.New("cannot compare a run with itself")
	}
	previous, err := db.GetCrawlRun(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, fmt.Errorf("run %s not found", previousID)
	}
	if previous.City != current.City || previous.Mode != current.Mode {
		return nil, fmt.Errorf("run %s belongs to %s/%s, not %s/%s",
			previousID, previous.City, previous.Mode, current.City, current.Mode)
	}
	return diffRuns(previous, current), nil
}

// diffRuns compares the stored graphs of two runs. A run without a
// stored graph counts as empty.
func diffRuns(previous, current *database.CrawlRun) *GraphDiff {
	diff := &GraphDiff{
		City:     current.City,
		Mode:     current.Mode,
		Previous: runMetadata(previous),
		Current:  runMetadata(current),
	}

	prevStops, prevSegs := graphSets(previous.Graph)
	curStops, curSegs := graphSets(current.Graph)

	for name := range curStops {
		if _, ok := prevStops[name]; ok {
			diff.UnchangedStops++
		} else {
			diff.AddedStops = append(diff.AddedStops, name)
		}
	}
	for name := range prevStops {
		if _, ok := curStops[name]; !ok {
			diff.RemovedStops = append(diff.RemovedStops, name)
		}
	}

	for key, seg := range curSegs {
		old, ok := prevSegs[key]
		switch {
		case !ok:
			diff.AddedSegments = append(diff.AddedSegments, seg.Name)
		case old.Duration != seg.Duration:
			diff.ChangedSegments = append(diff.ChangedSegments, DurationChange{
				Segment:  seg.Name,
				Previous: old.Duration,
				Current:  seg.Duration,
			})
		default:
			diff.UnchangedSegments++
		}
	}
	for key, seg := range prevSegs {
		if _, ok := curSegs[key]; !ok {
			diff.RemovedSegments = append(diff.RemovedSegments, seg.Name)
		}
	}

	slices.Sort(diff.AddedStops)
	slices.Sort(diff.RemovedStops)
	slices.Sort(diff.AddedSegments)
	slices.Sort(diff.RemovedSegments)
	slices.SortFunc(diff.ChangedSegments, func(a, b DurationChange) int {
		return strings.Compare(a.Segment, b.Segment)
	})

	diff.Direction = changeDirection(diff)
	return diff
}

func runMetadata(run *database.CrawlRun) RunMetadata {
	return RunMetadata{
		RunID:    run.RunID,
		Started:  run.StartedAt.Format("2006-01-02 15:04:05"),
		Status:   run.Status,
		Stops:    run.NodeCount,
		Segments: run.EdgeCount,
	}
}

// segmentKey identifies a segment across runs independent of its duration.
func segmentKey(s model.RouteSegment) string {
	return s.From + "\x00" + s.To + "\x00" + s.Route
}

func graphSets(g *model.GraphExport) (map[string]struct{}, map[string]model.RouteSegment) {
	stops := make(map[string]struct{})
	segs := make(map[string]model.RouteSegment)
	if g == nil {
		return stops, segs
	}
	for _, n := range g.Nodes {
		stops[n.Name] = struct{}{}
	}
	for _, s := range g.Relationships {
		segs[segmentKey(s)] = s
	}
	return stops, segs
}

func changeDirection(d *GraphDiff) string {
	added := len(d.AddedStops) + len(d.AddedSegments)
	removed := len(d.RemovedStops) + len(d.RemovedSegments)
	switch {
	case added == 0 && removed == 0 && len(d.ChangedSegments) == 0:
		return changeUnchanged
	case removed == 0 && added > 0:
		return changeGrown
	case added == 0 && removed > 0:
		return changeShrunk
	default:
		return changeReshaped
	}
}

// writeDiffText prints the comparison for the terminal.
func writeDiffText(w io.Writer, d *GraphDiff) {
	fmt.Fprintf(w, "Graph comparison: %s / %s\n", d.City, d.Mode)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Previous: %s  %s  %d stops, %d segments (%s)\n",
		d.Previous.Started, d.Previous.RunID, d.Previous.Stops, d.Previous.Segments, d.Previous.Status)
	fmt.Fprintf(w, "Current:  %s  %s  %d stops, %d segments (%s)\n",
		d.Current.Started, d.Current.RunID, d.Current.Stops, d.Current.Segments, d.Current.Status)
	fmt.Fprintf(w, "Change:   %s\n\n", d.Direction)

	writeList(w, "Added stops", d.AddedStops)
	writeList(w, "Removed stops", d.RemovedStops)
	writeList(w, "Added segments", d.AddedSegments)
	writeList(w, "Removed segments", d.RemovedSegments)
	if len(d.ChangedSegments) > 0 {
		fmt.Fprintf(w, "Changed durations (%d):\n", len(d.ChangedSegments))
		for _, c := range d.ChangedSegments {
			fmt.Fprintf(w, "  ~ %s: %d -> %d min\n", c.Segment, c.Previous, c.Current)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Unchanged: %d stops, %d segments\n", d.UnchangedStops, d.UnchangedSegments)
}

func writeList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s (%d):\n", title, len(items))
	for _, item := range items {
		fmt.Fprintf(w, "  %s\n", item)
	}
	fmt.Fprintln(w)
}

// writeDiffMarkdown renders the comparison as GitHub-flavored Markdown.
func writeDiffMarkdown(w io.Writer, d *GraphDiff) error {
	md := markdown.NewMarkdown(w)
	md.H1("Graph Comparison: " + d.City + " (" + d.Mode + ")")
	md.PlainText("")
	md.PlainTextf("**Change:** %s", d.Direction)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Run", "`" + d.Previous.RunID + "`", "`" + d.Current.RunID + "`", "-"},
			{"Started", d.Previous.Started, d.Current.Started, "-"},
			{"Status", d.Previous.Status, d.Current.Status, "-"},
			{"Stops", strconv.Itoa(d.Previous.Stops), strconv.Itoa(d.Current.Stops), formatDelta(d.Current.Stops - d.Previous.Stops)},
			{"Segments", strconv.Itoa(d.Previous.Segments), strconv.Itoa(d.Current.Segments), formatDelta(d.Current.Segments - d.Previous.Segments)},
		},
	})
	md.PlainText("")

	sections := map[string][]string{
		"Added stops":      d.AddedStops,
		"Removed stops":    d.RemovedStops,
		"Added segments":   d.AddedSegments,
		"Removed segments": d.RemovedSegments,
	}
	for _, title := range slices.Sorted(maps.Keys(sections)) {
		items := sections[title]
		if len(items) == 0 {
			continue
		}
		md.H2(fmt.Sprintf("%s (%d)", title, len(items)))
		md.BulletList(items...)
		md.PlainText("")
	}

	if len(d.ChangedSegments) > 0 {
		rows := make([][]string, len(d.ChangedSegments))
		for i, c := range d.ChangedSegments {
			rows[i] = []string{c.Segment, strconv.Itoa(c.Previous), strconv.Itoa(c.Current)}
		}
		md.H2(fmt.Sprintf("Changed durations (%d)", len(rows)))
		md.Table(markdown.TableSet{
			Header: []string{"Segment", "Previous (min)", "Current (min)"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return md.Build()
}

// formatDelta formats a count change with an explicit sign.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
