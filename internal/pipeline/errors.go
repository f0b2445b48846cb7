package pipeline

import "errors"

var (
	// ErrIndexUnavailable is recorded when the route index is empty or
	// could not be fetched.
	ErrIndexUnavailable = errors.New("route index unavailable")

	// ErrDuplicateJob is returned when a batch lists the same city and mode twice.
	ErrDuplicateJob = errors.New("duplicate crawl job")

	// ErrConcurrentNetworkCrawl is returned when a batch asks for parallel
	// jobs against the live site.
	ErrConcurrentNetworkCrawl = errors.New("network crawls must run sequentially")
)
