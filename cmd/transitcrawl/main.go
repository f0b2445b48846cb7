// Package main provides the entry point for the transitcrawl CLI.
//
// transitcrawl reads the kudikina.ru schedule site and builds the stop and
// route-segment graph of a city's public transport network.
//
// Usage:
//
//	transitcrawl crawl <city>...
//	transitcrawl crawl --all-modes --json -o perm.json Пермь
//
// See --help for all available options.
package main

// main is the entry point for transitcrawl.
func main() {
	Execute()
}
