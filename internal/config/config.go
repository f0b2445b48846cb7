package config

import (
	"net"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"

	"github.com/citec-spbu/Transport/internal/model"
)

// Default configuration values.
// Timings mirror the published politeness policy of the schedule site.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "transitcrawl"

	// DefaultSiteURL is the root of the schedule site.
	DefaultSiteURL = "https://kudikina.ru/"

	// DefaultTimeout applies to each individual HTTP request.
	DefaultTimeout = 10 * time.Second

	// DefaultMainPageTimeout applies to the region index, which is much
	// larger than any other page.
	DefaultMainPageTimeout = 15 * time.Second

	// DefaultCacheExpiry is the freshness window for cached pages and
	// cached route documents.
	DefaultCacheExpiry = 30 * 24 * time.Hour

	// DefaultMaxRetries is the number of retries after a transient failure.
	DefaultMaxRetries = 5

	// DefaultRetryInterval is the first backoff interval; each retry doubles it.
	DefaultRetryInterval = 2 * time.Second

	// DefaultRequestPause is the fixed pause after a route that hit the network.
	DefaultRequestPause = 2 * time.Second

	// DefaultJitterMin and DefaultJitterMax bound the random pause added to
	// DefaultRequestPause.
	DefaultJitterMin = 300 * time.Millisecond
	DefaultJitterMax = 1200 * time.Millisecond

	// DefaultRegionPause is the pause between region pages while rebuilding
	// the city lookup.
	DefaultRegionPause = 1500 * time.Millisecond

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "transitcrawl/1.0 (+https://github.com/citec-spbu/Transport)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultMemoryCacheSize is the number of pages kept in the in-process LRU.
	DefaultMemoryCacheSize = 512

	// DefaultConcurrency is the number of crawl jobs run at once.
	// Network crawls are always sequential.
	DefaultConcurrency = 1
)

// Config holds all configuration options for a crawl.
// It is populated from defaults, the config file, the environment and
// CLI flags, in that order of increasing precedence.
type Config struct {
	// SiteURL is the absolute root URL of the schedule site.
	SiteURL string

	// CacheDir holds the JSON route cache and the city lookup.
	CacheDir string

	// DBDir holds the SQLite database with cached HTTP responses and
	// crawl history.
	DBDir string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MainPageTimeout is the HTTP timeout for the region index page.
	MainPageTimeout time.Duration

	// CacheExpiry is the freshness window for every cache tier.
	CacheExpiry time.Duration

	// MaxRetries is the retry budget for 500/502/503/504 and transport errors.
	MaxRetries int

	// RetryInterval is the initial exponential backoff interval.
	RetryInterval time.Duration

	// RequestPause, JitterMin and JitterMax define the pause after each
	// route that caused real network traffic.
	RequestPause time.Duration
	JitterMin    time.Duration
	JitterMax    time.Duration

	// RegionPause is the pause between region page fetches.
	RegionPause time.Duration

	// StopTolerance is the planar distance under which two same-named stops merge.
	StopTolerance float64

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" format.
	ProxyAddress string

	// MemoryCacheSize is the capacity of the in-process page cache.
	MemoryCacheSize int

	// Concurrency is the number of city/mode jobs processed at once.
	// Values above 1 require Offline.
	Concurrency int

	// UseCache enables reading fresh route documents from CacheDir.
	UseCache bool

	// Offline builds graphs from cached documents only, with no network access.
	Offline bool

	// SaveHistory records every finished crawl in the database.
	SaveHistory bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON lines.
	JSONLog bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string

	// CityPaths are manual city name to site path overrides from the config file.
	CityPaths map[string]string

	// Modes are the transport modes to crawl.
	Modes []model.TransportMode

	// JSONReport and MarkdownReport select the output format; the default
	// is a plain text summary. They are mutually exclusive.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile is the output file path; stdout when empty.
	ReportFile string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		SiteURL:         DefaultSiteURL,
		CacheDir:        XDGCacheDir(),
		DBDir:           XDGDataDir(),
		Timeout:         DefaultTimeout,
		MainPageTimeout: DefaultMainPageTimeout,
		CacheExpiry:     DefaultCacheExpiry,
		MaxRetries:      DefaultMaxRetries,
		RetryInterval:   DefaultRetryInterval,
		RequestPause:    DefaultRequestPause,
		JitterMin:       DefaultJitterMin,
		JitterMax:       DefaultJitterMax,
		RegionPause:     DefaultRegionPause,
		StopTolerance:   model.DefaultStopTolerance,
		UserAgent:       DefaultUserAgent,
		MaxBodySize:     DefaultMaxBodySize,
		MemoryCacheSize: DefaultMemoryCacheSize,
		Concurrency:     DefaultConcurrency,
		UseCache:        true,
		SaveHistory:     true,
		CityPaths:       make(map[string]string),
		Modes:           []model.TransportMode{model.ModeBus},
	}
}

// XDGDataDir returns the XDG data directory, e.g. ~/.local/share/transitcrawl.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory, e.g. ~/.config/transitcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory, e.g. ~/.cache/transitcrawl.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.SiteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidSiteURL
	}
	if c.CacheDir == "" {
		return ErrNoCacheDir
	}
	if c.Timeout <= 0 || c.MainPageTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.CacheExpiry <= 0 {
		return ErrInvalidCacheExpiry
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.RetryInterval < 0 || c.RequestPause < 0 || c.RegionPause < 0 {
		return ErrInvalidPause
	}
	if c.JitterMin < 0 || c.JitterMax < c.JitterMin {
		return ErrInvalidJitter
	}
	if c.StopTolerance <= 0 {
		return ErrInvalidTolerance
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Concurrency > 1 && !c.Offline {
		return ErrParallelNetworkCrawl
	}
	if c.ProxyAddress != "" && !isValidProxyAddress(c.ProxyAddress) {
		return ErrInvalidProxyAddress
	}
	for _, m := range c.Modes {
		if !m.Valid() {
			return ErrInvalidMode
		}
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// isValidProxyAddress checks for "host:port" with a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return false
	}
	return n >= 1 && n <= 65535
}
