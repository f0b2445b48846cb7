// Package graph builds route records and folds them into a city graph.
//
// Assemble and Merge are pure; Assembler adds the page fetching.
// Stop identity is decided per route only: a name seen again within
// DefaultStopTolerance of its earlier position is the same stop, anything
// farther becomes "<name> 1", "<name> 2", and so on. Across routes, nodes
// are unified purely by name.
package graph
