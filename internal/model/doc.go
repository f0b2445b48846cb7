// Package model defines the data structures shared by the crawler, the
// graph assembler, the cache and the report writers.
//
// This package contains the following main types:
//   - Coordinate: a stop position in raw longitude/latitude units
//   - StopNode and RouteSegment: the vertices and timed edges of a city graph
//   - RouteRef and RouteRecord: one row of a route index and the cached
//     parse result for that route
//   - CityGraph: the union of all route records for a city and transport mode
//   - TransportMode: the four supported modes and the site data each carries
//   - Warning: a non-fatal problem recorded while crawling
//
// JSON field names follow the route cache format so that cache files written
// by earlier crawls stay readable.
package model
