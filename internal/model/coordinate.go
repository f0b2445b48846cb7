package model

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultStopTolerance is the planar distance, in raw degree units, below
// which two coordinates denote the same physical stop.
// One degree of longitude is not one degree of latitude, so this is an
// approximation and is kept unchanged to preserve which stops get merged.
const DefaultStopTolerance = 0.005

// Coordinate is a stop position. X is longitude and Y is latitude.
// Either axis may be missing, in which case the coordinate is undefined.
type Coordinate struct {
	X           *float64 `json:"x"`
	Y           *float64 `json:"y"`
	Approximate bool     `json:"is_approximate"`
}

// NewCoordinate returns a defined, exact coordinate.
func NewCoordinate(x, y float64) Coordinate {
	return Coordinate{X: &x, Y: &y}
}

// Defined reports whether both axes are present.
func (c Coordinate) Defined() bool {
	return c.X != nil && c.Y != nil
}

// Point converts a defined coordinate to an orb.Point.
// The second return value is false when the coordinate is undefined.
func (c Coordinate) Point() (orb.Point, bool) {
	if !c.Defined() {
		return orb.Point{}, false
	}
	return orb.Point{*c.X, *c.Y}, true
}

// AsApproximate returns a copy of c flagged as inferred from a neighbour.
func (c Coordinate) AsApproximate() Coordinate {
	out := Coordinate{Approximate: true}
	if c.X != nil {
		x := *c.X
		out.X = &x
	}
	if c.Y != nil {
		y := *c.Y
		out.Y = &y
	}
	return out
}

// String implements fmt.Stringer.
func (c Coordinate) String() string {
	if !c.Defined() {
		return "(undefined)"
	}
	s := fmt.Sprintf("(%.6f, %.6f)", *c.X, *c.Y)
	if c.Approximate {
		s += "~"
	}
	return s
}

// SameStop reports whether a and b are both defined and closer than tol.
func SameStop(a, b Coordinate, tol float64) bool {
	pa, ok := a.Point()
	if !ok {
		return false
	}
	pb, ok := b.Point()
	if !ok {
		return false
	}
	return planar.Distance(pa, pb) < tol
}
