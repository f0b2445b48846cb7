package model

import (
	"slices"
	"strings"
)

// CityGraph is the union of all route records of one city and mode.
// Node names are unique; every edge has a positive duration.
type CityGraph struct {
	City  string               `json:"city"`
	Mode  TransportMode        `json:"mode"`
	Nodes map[string]*StopNode `json:"-"`
	Edges []RouteSegment       `json:"-"`
}

// NewCityGraph returns an empty graph for city and mode.
func NewCityGraph(city string, mode TransportMode) *CityGraph {
	return &CityGraph{
		City:  city,
		Mode:  mode,
		Nodes: make(map[string]*StopNode),
		Edges: make([]RouteSegment, 0),
	}
}

// NodeList returns the nodes sorted by name.
func (g *CityGraph) NodeList() []*StopNode {
	nodes := make([]*StopNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *StopNode) int {
		return strings.Compare(a.Name, b.Name)
	})
	return nodes
}

// RouteCount returns the number of distinct routes referenced by nodes.
func (g *CityGraph) RouteCount() int {
	seen := make(map[string]struct{})
	for _, n := range g.Nodes {
		for _, r := range n.Routes {
			seen[r] = struct{}{}
		}
	}
	return len(seen)
}

// ApproximateCount returns how many nodes carry an inferred coordinate.
func (g *CityGraph) ApproximateCount() int {
	count := 0
	for _, n := range g.Nodes {
		if n.Approximate {
			count++
		}
	}
	return count
}

// Empty reports whether the graph has neither nodes nor edges.
func (g *CityGraph) Empty() bool {
	return len(g.Nodes) == 0 && len(g.Edges) == 0
}

// GraphExport is the serialized form handed to the graph loader.
type GraphExport struct {
	City              string         `json:"city"`
	Mode              string         `json:"mode"`
	NodeLabel         string         `json:"nodeLabel"`
	RelationshipLabel string         `json:"relationshipLabel"`
	Nodes             []*StopNode    `json:"nodes"`
	Relationships     []RouteSegment `json:"relationships"`
}

// Export returns the graph in loader form with deterministic node order.
func (g *CityGraph) Export() GraphExport {
	edges := g.Edges
	if edges == nil {
		edges = []RouteSegment{}
	}
	return GraphExport{
		City:              g.City,
		Mode:              g.Mode.String(),
		NodeLabel:         g.Mode.NodeLabel(g.City),
		RelationshipLabel: g.Mode.RelationshipLabel(g.City),
		Nodes:             g.NodeList(),
		Relationships:     edges,
	}
}
