package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidSiteURL is returned when the site URL is not absolute.
	ErrInvalidSiteURL = errors.New("invalid site url: must be an absolute http(s) URL")

	// ErrNoCacheDir is returned when no cache directory is configured.
	ErrNoCacheDir = errors.New("no cache directory configured")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCacheExpiry is returned when the cache expiry is not positive.
	ErrInvalidCacheExpiry = errors.New("invalid cache expiry: must be positive")

	// ErrInvalidMaxRetries is returned when the retry budget is negative.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidPause is returned when a pause or backoff interval is negative.
	ErrInvalidPause = errors.New("invalid pause: must be non-negative")

	// ErrInvalidJitter is returned when the jitter bounds are negative or inverted.
	ErrInvalidJitter = errors.New("invalid jitter: need 0 <= min <= max")

	// ErrInvalidTolerance is returned when the stop tolerance is not positive.
	ErrInvalidTolerance = errors.New("invalid stop tolerance: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrParallelNetworkCrawl is returned when more than one job would hit
	// the site at the same time.
	ErrParallelNetworkCrawl = errors.New("concurrency above 1 is only allowed with --offline")

	// ErrInvalidProxyAddress is returned when the proxy is not "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrInvalidMode is returned when an unknown transport mode is configured.
	ErrInvalidMode = errors.New("invalid transport mode")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidConfigFile is returned when the configuration file fails validation.
	ErrInvalidConfigFile = errors.New("invalid configuration file")
)
