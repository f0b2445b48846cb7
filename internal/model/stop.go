package model

import (
	"fmt"
	"slices"
)

// StopNode is a vertex of the transit graph.
// Name is the disambiguated identity key: the scraped stop name, suffixed
// with " <n>" when the same name was seen at a different location.
type StopNode struct {
	Name        string   `json:"name"`
	Routes      []string `json:"routeList"`
	X           float64  `json:"xCoordinate"`
	Y           float64  `json:"yCoordinate"`
	Approximate bool     `json:"isCoordinateApproximate"`
}

// NewStopNode creates a node placed at c that belongs to route.
// c must be defined.
func NewStopNode(name, route string, c Coordinate) *StopNode {
	n := &StopNode{
		Name:        name,
		Approximate: c.Approximate,
	}
	if c.Defined() {
		n.X, n.Y = *c.X, *c.Y
	}
	if route != "" {
		n.Routes = []string{route}
	}
	return n
}

// Coordinate returns the node position as a Coordinate.
func (n *StopNode) Coordinate() Coordinate {
	c := NewCoordinate(n.X, n.Y)
	c.Approximate = n.Approximate
	return c
}

// AddRoute adds route to the membership list unless it is already present.
// It reports whether the list changed.
func (n *StopNode) AddRoute(route string) bool {
	if route == "" || slices.Contains(n.Routes, route) {
		return false
	}
	n.Routes = append(n.Routes, route)
	return true
}

// Clone returns a deep copy of n.
func (n *StopNode) Clone() *StopNode {
	c := *n
	c.Routes = slices.Clone(n.Routes)
	return &c
}

// RouteSegment is a directed, timed hop between two consecutive stops of
// one route. Duration is in minutes and is always positive in a valid graph.
type RouteSegment struct {
	From     string `json:"startStop"`
	To       string `json:"endStop"`
	Name     string `json:"name"`
	Route    string `json:"route"`
	Duration int    `json:"duration"`
}

// NewRouteSegment builds a segment with the conventional label.
func NewRouteSegment(from, to, route string, duration int) RouteSegment {
	return RouteSegment{
		From:     from,
		To:       to,
		Name:     SegmentName(from, to, route),
		Route:    route,
		Duration: duration,
	}
}

// SegmentName formats the label used for a segment.
func SegmentName(from, to, route string) string {
	return fmt.Sprintf("%s -> %s; route_name: %s", from, to, route)
}

// Valid reports whether the segment may appear in a graph.
func (s RouteSegment) Valid() bool {
	return s.Duration > 0 && s.From != "" && s.To != "" && s.From != s.To
}
