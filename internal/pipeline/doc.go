// Package pipeline runs a city crawl as a sequence of steps and batches
// crawls over several cities and modes.
//
// A crawl resolves the city, loads or fetches its route index, then walks
// the index in order. Each route comes from the JSON cache when fresh or
// is assembled from the site, and is merged into the city graph. Routes
// that caused network traffic are followed by a politeness pause.
//
// The crawl always yields a graph. Problems are recorded as warnings on
// the CrawlResult; only cancellation is returned as an error, together
// with the partial graph.
package pipeline
