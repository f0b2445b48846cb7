package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"github.com/citec-spbu/Transport/internal/cache"
	"github.com/citec-spbu/Transport/internal/fetch"
)

var (
	// ErrCityNotFound is returned when a city has no known site path.
	ErrCityNotFound = errors.New("city not found")

	// ErrInvalidSiteURL is returned when the site root is not an absolute URL.
	ErrInvalidSiteURL = errors.New("site URL must be absolute")
)

// Page suffixes appended to a route URL.
const (
	forwardSuffix  = "/A"
	backwardSuffix = "/B"
	mapSuffix      = "/map"
)

// Fetcher retrieves a page. *fetch.Client satisfies it.
type Fetcher interface {
	FetchWithTimeout(ctx context.Context, rawURL string, timeout time.Duration) (*fetch.Response, error)
}

// Site reads the schedule site: city lookup, route listings, timetables
// and route maps. Page failures degrade to empty results.
type Site struct {
	fetcher Fetcher
	base    *url.URL
	logger  *slog.Logger

	// store keeps the city lookup between runs; nil disables it.
	store     *cache.Store
	overrides map[string]string

	timeout         time.Duration
	mainPageTimeout time.Duration
	regionPause     time.Duration

	// mu guards the city lookup.
	mu        sync.Mutex
	cities    map[string]string
	refreshed bool
}

// SiteOption configures a Site.
type SiteOption func(*Site)

// WithCityStore persists the city lookup in store.
func WithCityStore(store *cache.Store) SiteOption {
	return func(s *Site) {
		s.store = store
	}
}

// WithCityOverrides sets manual city paths that win over the crawled lookup.
func WithCityOverrides(paths map[string]string) SiteOption {
	return func(s *Site) {
		s.overrides = paths
	}
}

// WithRequestTimeout sets the per-request timeout for ordinary pages.
func WithRequestTimeout(d time.Duration) SiteOption {
	return func(s *Site) {
		s.timeout = d
	}
}

// WithMainPageTimeout sets the timeout for the region index page.
func WithMainPageTimeout(d time.Duration) SiteOption {
	return func(s *Site) {
		s.mainPageTimeout = d
	}
}

// WithRegionPause sets the pause after each region page fetched from the network.
func WithRegionPause(d time.Duration) SiteOption {
	return func(s *Site) {
		s.regionPause = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SiteOption {
	return func(s *Site) {
		s.logger = logger
	}
}

// NewSite creates a Site rooted at siteURL.
func NewSite(fetcher Fetcher, siteURL string, opts ...SiteOption) (*Site, error) {
	base, err := url.Parse(siteURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSiteURL, siteURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	s := &Site{
		fetcher:         fetcher,
		base:            base,
		logger:          slog.Default(),
		timeout:         10 * time.Second,
		mainPageTimeout: 15 * time.Second,
		regionPause:     1500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// BaseURL returns the site root.
func (s *Site) BaseURL() string {
	return s.base.String()
}

// resolve joins a site-relative reference onto the site root.
func (s *Site) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid page reference %q: %w", ref, err)
	}
	return s.base.ResolveReference(u).String(), nil
}

// document fetches ref and parses it as HTML.
// fromCache reports whether the page came without network traffic.
func (s *Site) document(ctx context.Context, ref string, timeout time.Duration) (doc *goquery.Document, fromCache bool, err error) {
	target, err := s.resolve(ref)
	if err != nil {
		return nil, false, err
	}

	resp, err := s.fetcher.FetchWithTimeout(ctx, target, timeout)
	if err != nil {
		return nil, false, err
	}

	doc, err = goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, resp.FromCache, fmt.Errorf("failed to parse %s: %w", target, err)
	}
	return doc, resp.FromCache, nil
}

// routePage builds the reference of a route sub-page.
func routePage(routeURL, suffix string) string {
	return strings.TrimSuffix(routeURL, "/") + suffix
}

// cleanText trims s and puts it into Unicode NFC so the same stop name
// compares equal across pages.
func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Pause waits for d or until ctx is done.
func Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
