package pipeline

import (
	"time"

	"github.com/citec-spbu/Transport/internal/database"
	"github.com/citec-spbu/Transport/internal/model"
)

// Outcome says where a route record came from.
type Outcome string

// Route outcomes.
const (
	OutcomeFetched Outcome = "fetched"
	OutcomeCached  Outcome = "cached"
	OutcomeSkipped Outcome = "skipped"
)

// RouteOutcome is the per-route entry of a crawl.
type RouteOutcome struct {
	Route   model.RouteRef `json:"route"`
	Outcome Outcome        `json:"outcome"`
	Nodes   int            `json:"nodesAdded"`
	Edges   int            `json:"edgesAdded"`
}

// CrawlResult is the state and outcome of one city crawl.
type CrawlResult struct {
	RunID      string              `json:"runId"`
	City       string              `json:"city"`
	Mode       model.TransportMode `json:"mode"`
	UseCache   bool                `json:"useCache"`
	CityPath   string              `json:"cityPath,omitempty"`
	StartedAt  time.Time           `json:"startedAt"`
	FinishedAt time.Time           `json:"finishedAt"`
	Status     string              `json:"status"`

	Index       []model.RouteRef `json:"-"`
	IndexCached bool             `json:"indexCached"`

	Graph    *model.CityGraph `json:"-"`
	Routes   []RouteOutcome   `json:"routes"`
	Warnings []model.Warning  `json:"warnings"`

	// Steps lists the pipeline steps that completed.
	Steps []string `json:"-"`
}

// NewCrawlResult returns an empty result with an empty graph.
func NewCrawlResult(runID, city string, mode model.TransportMode, useCache bool) *CrawlResult {
	return &CrawlResult{
		RunID:    runID,
		City:     city,
		Mode:     mode,
		UseCache: useCache,
		Graph:    model.NewCityGraph(city, mode),
		Routes:   make([]RouteOutcome, 0),
		Warnings: make([]model.Warning, 0),
	}
}

// AddWarning records a warning.
func (r *CrawlResult) AddWarning(kind model.WarningKind, route, message string) {
	r.Warnings = append(r.Warnings, model.Warning{Kind: kind, Route: route, Message: message})
}

// Count returns how many routes ended with outcome o.
func (r *CrawlResult) Count(o Outcome) int {
	n := 0
	for _, ro := range r.Routes {
		if ro.Outcome == o {
			n++
		}
	}
	return n
}

// Duration returns the wall time of the crawl.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// settle derives Status from the recorded outcomes. err is the pipeline error.
func (r *CrawlResult) settle(err error, interrupted bool) {
	switch {
	case interrupted:
		r.Status = database.RunStatusInterrupted
	case err != nil:
		r.Status = database.RunStatusFailed
	case r.Count(OutcomeSkipped) > 0:
		r.Status = database.RunStatusPartial
	default:
		r.Status = database.RunStatusComplete
	}
}

// CrawlRun converts the result into a history row.
func (r *CrawlResult) CrawlRun() *database.CrawlRun {
	export := r.Graph.Export()
	return &database.CrawlRun{
		RunID:         r.RunID,
		City:          r.City,
		Mode:          r.Mode.String(),
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		RoutesTotal:   len(r.Index),
		RoutesFetched: r.Count(OutcomeFetched),
		RoutesCached:  r.Count(OutcomeCached),
		RoutesSkipped: r.Count(OutcomeSkipped),
		NodeCount:     len(r.Graph.Nodes),
		EdgeCount:     len(r.Graph.Edges),
		Status:        r.Status,
		Warnings:      r.Warnings,
		Graph:         &export,
	}
}
