package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/citec-spbu/Transport/internal/model"
)

// Job is one city and mode to crawl.
type Job struct {
	City string
	Mode model.TransportMode
}

// String implements fmt.Stringer.
func (j Job) String() string {
	return j.City + "/" + j.Mode.String()
}

// Jobs returns the cross product of cities and modes, cities first.
func Jobs(cities []string, modes []model.TransportMode) []Job {
	jobs := make([]Job, 0, len(cities)*len(modes))
	for _, city := range cities {
		for _, mode := range modes {
			jobs = append(jobs, Job{City: city, Mode: mode})
		}
	}
	return jobs
}

// CrawlFunc crawls one job. (*Crawler).Crawl satisfies it.
type CrawlFunc func(ctx context.Context, city string, mode model.TransportMode, useCache bool) (*CrawlResult, error)

// BatchProcessor runs several crawl jobs. Network crawls run one at a
// time; offline rebuilds may run concurrently.
type BatchProcessor struct {
	crawl       CrawlFunc
	concurrency int
	offline     bool
	useCache    bool
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent jobs.
// Non-positive values are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithOfflineBatch marks the batch as cache-only, which allows concurrency.
func WithOfflineBatch(offline bool) BatchOption {
	return func(b *BatchProcessor) {
		b.offline = offline
	}
}

// WithUseCache sets the useCache argument passed to every crawl.
func WithUseCache(useCache bool) BatchOption {
	return func(b *BatchProcessor) {
		b.useCache = useCache
	}
}

// NewBatchProcessor creates a BatchProcessor calling crawl for every job.
func NewBatchProcessor(crawl CrawlFunc, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		crawl:       crawl,
		concurrency: 1,
		useCache:    true,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// Validate checks jobs against the batch settings.
func (bp *BatchProcessor) Validate(jobs []Job) error {
	if bp.concurrency > 1 && !bp.offline {
		return fmt.Errorf("%w: concurrency %d", ErrConcurrentNetworkCrawl, bp.concurrency)
	}
	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		key := strings.ToLower(strings.TrimSpace(j.City)) + "/" + j.Mode.String()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, j)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ProcessBatch runs jobs and returns their results in job order.
// A failing job does not stop the others. Cancellation does: jobs that
// never started have a nil result, and the context error is returned.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*CrawlResult, error) {
	if err := bp.Validate(jobs); err != nil {
		return nil, err
	}

	bp.logger.Info("starting batch", "jobs", len(jobs), "concurrency", bp.concurrency)
	start := time.Now()

	results := make([]*CrawlResult, len(jobs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res, err := bp.crawl(gctx, job.City, job.Mode, bp.useCache)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if err != nil {
				bp.logger.Warn("crawl job ended with error", "job", job.String(), "error", err)
				if gctx.Err() != nil {
					return err
				}
			}
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch complete", "jobs", len(jobs), "elapsed", time.Since(start))
	return results, err
}
