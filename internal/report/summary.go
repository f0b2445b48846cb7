package report

import (
	"time"

	"github.com/citec-spbu/Transport/internal/model"
	"github.com/citec-spbu/Transport/internal/pipeline"
)

// Summary is the condensed view of one crawl shared by the text writers.
type Summary struct {
	RunID       string              `json:"runId"`
	City        string              `json:"city"`
	Mode        model.TransportMode `json:"mode"`
	Status      string              `json:"status"`
	StartedAt   time.Time           `json:"startedAt"`
	Duration    time.Duration       `json:"-"`
	DurationStr string              `json:"duration"`

	RoutesTotal   int  `json:"routesTotal"`
	RoutesFetched int  `json:"routesFetched"`
	RoutesCached  int  `json:"routesCached"`
	RoutesSkipped int  `json:"routesSkipped"`
	IndexCached   bool `json:"indexCached"`

	Nodes            int `json:"nodes"`
	Edges            int `json:"edges"`
	ApproximateNodes int `json:"approximateNodes"`
	LinkedRoutes     int `json:"linkedRoutes"`

	Warnings       []model.Warning        `json:"warnings"`
	SeverityCounts map[model.Severity]int `json:"-"`
}

// NewSummary condenses res.
func NewSummary(res *pipeline.CrawlResult) *Summary {
	s := &Summary{
		RunID:          res.RunID,
		City:           res.City,
		Mode:           res.Mode,
		Status:         res.Status,
		StartedAt:      res.StartedAt,
		Duration:       res.Duration(),
		RoutesTotal:    len(res.Index),
		RoutesFetched:  res.Count(pipeline.OutcomeFetched),
		RoutesCached:   res.Count(pipeline.OutcomeCached),
		RoutesSkipped:  res.Count(pipeline.OutcomeSkipped),
		IndexCached:    res.IndexCached,
		Warnings:       res.Warnings,
		SeverityCounts: model.CountBySeverity(res.Warnings),
	}
	s.DurationStr = s.Duration.Round(time.Millisecond).String()
	if res.Graph != nil {
		s.Nodes = len(res.Graph.Nodes)
		s.Edges = len(res.Graph.Edges)
		s.ApproximateNodes = res.Graph.ApproximateCount()
		s.LinkedRoutes = res.Graph.RouteCount()
	}
	if s.Warnings == nil {
		s.Warnings = []model.Warning{}
	}
	return s
}

// Processed returns how many routes were reached before the crawl ended.
func (s *Summary) Processed() int {
	return s.RoutesFetched + s.RoutesCached + s.RoutesSkipped
}

// HasWarnings reports whether the crawl recorded any warning.
func (s *Summary) HasWarnings() bool {
	return len(s.Warnings) > 0
}

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}
