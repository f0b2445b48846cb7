// Package database provides SQLite storage for the crawler.
//
// Two tables are kept in a single file (transitcrawl.db):
//   - responses: raw HTTP GET responses keyed by SHA3-256 of the request,
//     used as the persistent tier of the fetch cache
//   - crawl_runs: one row per finished crawl with counters, warnings and
//     the exported graph, used by the history command
//
// The pure-Go modernc.org/sqlite driver is used so the binary needs no cgo.
package database
