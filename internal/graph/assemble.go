package graph

import (
	"fmt"
	"maps"
	"time"

	"github.com/citec-spbu/Transport/internal/crawler"
	"github.com/citec-spbu/Transport/internal/model"
)

// Options tune route assembly.
type Options struct {
	// Tolerance is the planar distance under which two same-named stops
	// are the same stop.
	Tolerance float64

	// Now stamps the record. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = model.DefaultStopTolerance
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// UniqueStopName returns the node name a stop called name at c takes in
// nodes. An existing node with that name at the same place is reused;
// otherwise " 1", " 2", ... is appended until the name is free or names a
// node at the same place.
func UniqueStopName(name string, c model.Coordinate, nodes map[string]*model.StopNode, tol float64) string {
	candidate := name
	for suffix := 1; ; suffix++ {
		existing, ok := nodes[candidate]
		if !ok || model.SameStop(existing.Coordinate(), c, tol) {
			return candidate
		}
		candidate = fmt.Sprintf("%s %d", name, suffix)
	}
}

// Assemble turns one route's timetable and geometry into a RouteRecord.
//
// Stops without a coordinate inherit the previous stop's coordinate,
// flagged approximate; leading stops with nothing to inherit are dropped
// and reported. Consecutive entries with different node names and a
// positive time difference become segments.
func Assemble(number, routeURL string, timetable []model.TimetableEntry, coords map[string]model.Coordinate, opts Options) (*model.RouteRecord, []model.Warning) {
	opts = opts.withDefaults()

	nodes := make(map[string]*model.StopNode)
	segments := make([]model.RouteSegment, 0)
	var warnings []model.Warning

	var (
		last     model.Coordinate
		hasLast  bool
		prevName string
		prevTime string
		hasPrev  bool
	)

	for _, row := range timetable {
		c, ok := coords[row.StopName]
		if !ok || !c.Defined() {
			if !hasLast {
				warnings = append(warnings, model.Warning{
					Kind:    model.WarningStopDropped,
					Route:   number,
					Stop:    row.StopName,
					Message: "no coordinate and no previous stop to inherit from",
				})
				continue
			}
			c = last.AsApproximate()
		}

		name := UniqueStopName(row.StopName, c, nodes, opts.Tolerance)
		if existing, ok := nodes[name]; !ok {
			nodes[name] = model.NewStopNode(name, number, c)
		} else {
			// Revisits move the node to the latest position.
			existing.X, existing.Y = *c.X, *c.Y
			existing.Approximate = c.Approximate
		}

		if hasPrev && prevName != name {
			if d, ok := crawler.CalculateDuration(prevTime, row.TimePoint); ok && d > 0 {
				segments = append(segments, model.NewRouteSegment(prevName, name, number, d))
			}
		}

		last, hasLast = c, true
		prevName, prevTime, hasPrev = name, row.TimePoint, true
	}

	rec := &model.RouteRecord{
		RouteNumber:   number,
		RouteURL:      routeURL,
		Nodes:         nodes,
		Relationships: segments,
		Timetable:     timetable,
		Coordinates:   maps.Clone(coords),
		Timestamp:     model.Timestamp{Time: opts.Now()},
	}
	if rec.Timetable == nil {
		rec.Timetable = []model.TimetableEntry{}
	}
	if rec.Coordinates == nil {
		rec.Coordinates = map[string]model.Coordinate{}
	}
	return rec, warnings
}
