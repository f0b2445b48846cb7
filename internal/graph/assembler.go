package graph

import (
	"context"
	"log/slog"
	"slices"

	"github.com/citec-spbu/Transport/internal/model"
)

// RouteSource supplies the raw pages of a route. *crawler.Site satisfies it.
type RouteSource interface {
	GetTimetable(ctx context.Context, routeURL string) ([]model.TimetableEntry, bool)
	GetStopCoordinates(ctx context.Context, routeURL string) map[string]model.Coordinate
}

// Assembler fetches a route through a RouteSource and assembles it.
type Assembler struct {
	source RouteSource
	opts   Options
	logger *slog.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithTolerance sets the same-stop distance.
func WithTolerance(tol float64) AssemblerOption {
	return func(a *Assembler) {
		a.opts.Tolerance = tol
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an Assembler reading from source.
func NewAssembler(source RouteSource, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.opts = a.opts.withDefaults()
	return a
}

// AssembleRoute builds the record of one route. It returns nil when the
// route has no timetable; a route without map geometry is still assembled.
func (a *Assembler) AssembleRoute(ctx context.Context, ref model.RouteRef) (*model.RouteRecord, []model.Warning) {
	timetable, ok := a.source.GetTimetable(ctx, ref.URL)
	if !ok || len(timetable) == 0 {
		a.logger.Warn("skipping route without timetable", "route", ref.Number, "url", ref.URL)
		return nil, []model.Warning{{
			Kind:    model.WarningRouteSkipped,
			Route:   ref.Number,
			Message: "timetable unavailable",
		}}
	}

	var warnings []model.Warning
	coords := a.source.GetStopCoordinates(ctx, ref.URL)
	if len(coords) == 0 {
		a.logger.Warn("no coordinates for route, using approximations", "route", ref.Number)
		warnings = append(warnings, model.Warning{
			Kind:    model.WarningNoGeometry,
			Route:   ref.Number,
			Message: "route map has no stop coordinates",
		})
	}

	rec, dropped := Assemble(ref.Number, ref.URL, timetable, coords, a.opts)
	for _, w := range dropped {
		a.logger.Debug("stop dropped", "route", w.Route, "stop", w.Stop)
	}
	return rec, append(warnings, dropped...)
}

func sortedNames(nodes map[string]*model.StopNode) []string {
	names := make([]string, 0, len(nodes))
	for name := range nodes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
