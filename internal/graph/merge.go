package graph

import "github.com/citec-spbu/Transport/internal/model"

// Merge folds rec into acc. Nodes are matched by name: a new name is
// copied in, a known name gains the record's routes. Segments with a
// positive duration are appended. rec is not modified.
// It returns how many nodes and segments were added.
func Merge(acc *model.CityGraph, rec *model.RouteRecord) (nodes, edges int) {
	if rec == nil {
		return 0, 0
	}

	for _, name := range sortedNames(rec.Nodes) {
		node := rec.Nodes[name]
		if node == nil {
			continue
		}
		existing, ok := acc.Nodes[name]
		if !ok {
			clone := node.Clone()
			clone.Name = name
			acc.Nodes[name] = clone
			nodes++
			continue
		}
		for _, r := range node.Routes {
			existing.AddRoute(r)
		}
	}

	for _, seg := range rec.Relationships {
		if seg.Duration > 0 {
			acc.Edges = append(acc.Edges, seg)
			edges++
		}
	}
	return nodes, edges
}
