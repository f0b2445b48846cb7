package model

import "testing"

func TestStopNodeAddRoute(t *testing.T) {
	t.Parallel()

	n := NewStopNode("Center", "5", NewCoordinate(1, 2))
	if n.AddRoute("5") {
		t.Error("duplicate route must not be added")
	}
	if !n.AddRoute("7") {
		t.Error("new route should be added")
	}
	if n.AddRoute("") {
		t.Error("empty route must be ignored")
	}
	if len(n.Routes) != 2 || n.Routes[0] != "5" || n.Routes[1] != "7" {
		t.Errorf("unexpected routes: %v", n.Routes)
	}

	clone := n.Clone()
	clone.AddRoute("9")
	if len(n.Routes) != 2 {
		t.Error("clone shares route slice with original")
	}
}

func TestRouteSegmentValid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		seg      RouteSegment
		expected bool
	}{
		{"positive", NewRouteSegment("A", "B", "1", 4), true},
		{"zero duration", NewRouteSegment("A", "B", "1", 0), false},
		{"negative duration", NewRouteSegment("A", "B", "1", -3), false},
		{"self loop", NewRouteSegment("A", "A", "1", 4), false},
		{"missing endpoint", NewRouteSegment("", "B", "1", 4), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.seg.Valid(); got != tc.expected {
				t.Errorf("Valid() = %v, expected %v", got, tc.expected)
			}
		})
	}
}

func TestCityGraphExport(t *testing.T) {
	t.Parallel()

	g := NewCityGraph("Spb", ModeTram)
	if !g.Empty() {
		t.Error("new graph should be empty")
	}

	g.Nodes["Zoo"] = NewStopNode("Zoo", "3", NewCoordinate(1, 1))
	g.Nodes["Airport"] = NewStopNode("Airport", "3", NewCoordinate(2, 2).AsApproximate())
	g.Nodes["Market"] = NewStopNode("Market", "4", NewCoordinate(3, 3))
	g.Edges = append(g.Edges, NewRouteSegment("Zoo", "Airport", "3", 5))

	exp := g.Export()
	if exp.Mode != "tram" || exp.NodeLabel != "SpbTramStop" || exp.RelationshipLabel != "SpbTramRouteSegment" {
		t.Errorf("unexpected export header: %+v", exp)
	}
	if len(exp.Nodes) != 3 || exp.Nodes[0].Name != "Airport" || exp.Nodes[2].Name != "Zoo" {
		t.Errorf("nodes not sorted by name: %v", exp.Nodes)
	}
	if len(exp.Relationships) != 1 {
		t.Errorf("expected 1 relationship, got %d", len(exp.Relationships))
	}
	if g.RouteCount() != 2 {
		t.Errorf("expected 2 routes, got %d", g.RouteCount())
	}
	if g.ApproximateCount() != 1 {
		t.Errorf("expected 1 approximate node, got %d", g.ApproximateCount())
	}
}
