// Package fetch retrieves schedule pages over HTTP.
//
// A Client looks a URL up in three tiers, in order:
//
//  1. an in-process LRU (github.com/bluele/gcache)
//  2. a persistent ResponseStore, normally the SQLite database
//  3. the network, with exponential backoff on transport errors and on
//     500, 502, 503 and 504 (github.com/cenkalti/backoff/v4)
//
// Connections may go through a SOCKS5 proxy (golang.org/x/net/proxy).
// Every failure surfaces as an error wrapping ErrUnavailable; crawler code
// treats such a page as absent.
package fetch
