package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/citec-spbu/Transport/internal/cache"
	"github.com/citec-spbu/Transport/internal/config"
	"github.com/citec-spbu/Transport/internal/crawler"
	"github.com/citec-spbu/Transport/internal/database"
	"github.com/citec-spbu/Transport/internal/fetch"
	tlog "github.com/citec-spbu/Transport/internal/log"
	"github.com/citec-spbu/Transport/internal/model"
)

// Source is the site as seen by a crawl. *crawler.Site satisfies it.
type Source interface {
	CityResolver
	IndexResolver
}

// TrafficCounter reports client activity. *fetch.Client satisfies it.
type TrafficCounter interface {
	Stats() fetch.Stats
}

// HistoryStore records finished crawls. *database.CrawlDB satisfies it.
type HistoryStore interface {
	SaveCrawlRun(ctx context.Context, run *database.CrawlRun) error
}

// Crawler builds city graphs.
type Crawler struct {
	source    Source
	assembler RouteAssembler
	store     *cache.Store
	traffic   TrafficCounter
	history   HistoryStore
	logger    *slog.Logger

	requestPause time.Duration
	jitterMin    time.Duration
	jitterMax    time.Duration
	anyAge       bool
	now          func() time.Time
	newID        func() string
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithStore sets the JSON document cache. Without it nothing is cached.
func WithStore(store *cache.Store) CrawlerOption {
	return func(c *Crawler) {
		c.store = store
	}
}

// WithTraffic sets the counter used to detect network traffic per route.
// Without it every route not served from the cache is followed by a pause.
func WithTraffic(counter TrafficCounter) CrawlerOption {
	return func(c *Crawler) {
		c.traffic = counter
	}
}

// WithHistory records every crawl in store.
func WithHistory(store HistoryStore) CrawlerOption {
	return func(c *Crawler) {
		c.history = store
	}
}

// WithPause sets the fixed pause and the jitter bounds added to it.
func WithPause(pause, jitterMin, jitterMax time.Duration) CrawlerOption {
	return func(c *Crawler) {
		c.requestPause = pause
		c.jitterMin = jitterMin
		c.jitterMax = jitterMax
	}
}

// WithAnyAge accepts cached documents regardless of their age.
func WithAnyAge(enabled bool) CrawlerOption {
	return func(c *Crawler) {
		c.anyAge = enabled
	}
}

// WithCrawlerLogger sets the logger.
func WithCrawlerLogger(logger *slog.Logger) CrawlerOption {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// NewCrawler creates a Crawler reading the site through source and
// assembling routes with assembler.
func NewCrawler(source Source, assembler RouteAssembler, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		source:       source,
		assembler:    assembler,
		logger:       slog.Default(),
		requestPause: config.DefaultRequestPause,
		jitterMin:    config.DefaultJitterMin,
		jitterMax:    config.DefaultJitterMax,
		now:          time.Now,
		newID:        uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Crawl builds the graph of city for mode. The result is never nil.
// Failures to resolve the city or its route index leave the graph empty
// and are recorded as warnings. On cancellation the partial graph is
// returned together with the context error.
func (c *Crawler) Crawl(ctx context.Context, city string, mode model.TransportMode, useCache bool) (*CrawlResult, error) {
	res := NewCrawlResult(c.newID(), city, mode, useCache)
	res.StartedAt = c.now()

	logger := tlog.WithRun(c.logger, res.RunID, city, mode.String())
	logger.Info("crawl started", "use_cache", useCache)

	docs := documents{store: c.store, anyAge: c.anyAge, logger: logger}
	p := New(WithLogger(logger))
	p.AddSteps(
		&CityStep{resolver: c.source, logger: logger},
		&IndexStep{resolver: c.source, docs: docs, logger: logger},
		&RoutesStep{
			assembler: c.assembler,
			docs:      docs,
			traffic:   c.traffic,
			pause:     c.pause,
			logger:    logger,
		},
	)

	err := p.Execute(ctx, res)
	interrupted := err != nil && ctx.Err() != nil
	res.FinishedAt = c.now()
	res.settle(err, interrupted)
	if interrupted {
		res.AddWarning(model.WarningInterrupted, "", "crawl cancelled after "+strconv.Itoa(len(res.Routes))+" routes")
	}

	logger.Info("crawl finished",
		"status", res.Status,
		"nodes", len(res.Graph.Nodes),
		"edges", len(res.Graph.Edges),
		"fetched", res.Count(OutcomeFetched),
		"cached", res.Count(OutcomeCached),
		"skipped", res.Count(OutcomeSkipped),
		"elapsed", res.Duration(),
	)

	c.record(res, logger)

	if interrupted {
		return res, ctx.Err()
	}
	if err != nil && !errors.Is(err, crawler.ErrCityNotFound) && !errors.Is(err, ErrIndexUnavailable) {
		return res, err
	}
	return res, nil
}

// record stores the run in history. It uses a fresh context so an
// interrupted crawl is still recorded.
func (c *Crawler) record(res *CrawlResult, logger *slog.Logger) {
	if c.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.history.SaveCrawlRun(ctx, res.CrawlRun()); err != nil {
		logger.Warn("failed to save crawl history", "error", err)
	}
}

// pause waits the request pause plus a uniform jitter.
func (c *Crawler) pause(ctx context.Context) error {
	d := c.requestPause
	if span := c.jitterMax - c.jitterMin; span > 0 {
		d += c.jitterMin + rand.N(span)
	} else {
		d += c.jitterMin
	}
	return crawler.Pause(ctx, d)
}
