package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/citec-spbu/Transport/internal/config"
	"github.com/citec-spbu/Transport/internal/database"
	"github.com/citec-spbu/Transport/internal/graph"
	"github.com/citec-spbu/Transport/internal/model"
	"github.com/citec-spbu/Transport/internal/pipeline"
	"github.com/citec-spbu/Transport/internal/report"
)

// errAllCrawlsFailed is returned when no job produced a graph.
var errAllCrawlsFailed = errors.New("no crawl produced a graph")

// crawlOptions are the report switches that do not live in config.Config.
type crawlOptions struct {
	meta   bool
	routes bool
}

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <city>...",
		Short: "Build the transport graph of one or more cities",
		Long: `Crawl builds, for each city and transport mode, the graph of stops and
timed route segments published on the schedule site.

Each route is read from its timetable and map pages. Parsed routes are
cached as JSON documents, so a second crawl within the cache expiry reuses
them without touching the network. Network crawls run one job at a time
with a pause after every route that was downloaded.

Examples:
  # Bus network of Perm as a text summary
  transitcrawl crawl Пермь

  # Tram and trolleybus networks as loader JSON
  transitcrawl crawl --mode tram --mode trolleybus --json -o perm.json Пермь

  # Every mode of two cities, with run metadata
  transitcrawl crawl --all-modes --json --meta Пермь Казань

  # Rebuild graphs from the cache only, four jobs at a time
  transitcrawl crawl --offline --concurrency 4 --all-modes Пермь Казань

  # Ignore cached routes and download everything again
  transitcrawl crawl --no-cache Пермь`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Scope flags
	cmd.Flags().StringSliceP("mode", "M", nil,
		"Transport mode to crawl: bus, tram, trolleybus, minibus (repeatable; default bus)")
	cmd.Flags().BoolP("all-modes", "A", false, "Crawl every transport mode")

	// Cache flags
	cmd.Flags().Bool("no-cache", false, "Ignore cached route documents and pages")
	cmd.Flags().Bool("offline", false, "Build graphs from cached documents only, without network access")
	cmd.Flags().Bool("no-history", false, "Do not record this crawl in the history database")

	// Crawl behavior flags
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of jobs run at once (above 1 requires --offline)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	cmd.Flags().Duration("pause", config.DefaultRequestPause, "Fixed pause after each downloaded route")
	cmd.Flags().Float64("tolerance", model.DefaultStopTolerance,
		"Distance under which two same-named stops are the same stop")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output the graph as JSON (mutually exclusive with --markdown)")
	cmd.Flags().Bool("meta", false, "With --json, wrap each graph with run metadata")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output a Markdown summary (mutually exclusive with --json)")
	cmd.Flags().Bool("routes", false, "List every route outcome in text and Markdown reports")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildCrawlConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	return runCrawl(ctx, cfg, opts, args, cmd.OutOrStdout(), logger)
}

// buildCrawlConfig applies the crawl flags on top of loadConfig.
func buildCrawlConfig(cmd *cobra.Command) (*config.Config, crawlOptions, error) {
	var opts crawlOptions

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, opts, err
	}

	allModes, err := cmd.Flags().GetBool("all-modes")
	if err != nil {
		return nil, opts, err
	}
	modeNames, err := cmd.Flags().GetStringSlice("mode")
	if err != nil {
		return nil, opts, err
	}
	switch {
	case allModes:
		cfg.Modes = model.AllModes()
	case len(modeNames) > 0:
		if cfg.Modes, err = config.ParseModes(modeNames); err != nil {
			return nil, opts, err
		}
	}

	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, opts, err
	}
	cfg.UseCache = !noCache

	if cfg.Offline, err = cmd.Flags().GetBool("offline"); err != nil {
		return nil, opts, err
	}
	if cfg.Offline && noCache {
		return nil, opts, errors.New("--offline and --no-cache cannot be used together")
	}

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return nil, opts, err
	}
	cfg.SaveHistory = !noHistory

	if err := setInt(cmd, "concurrency", &cfg.Concurrency); err != nil {
		return nil, opts, err
	}
	if err := setDuration(cmd, "timeout", &cfg.Timeout); err != nil {
		return nil, opts, err
	}
	if err := setDuration(cmd, "pause", &cfg.RequestPause); err != nil {
		return nil, opts, err
	}
	if err := setFloat(cmd, "tolerance", &cfg.StopTolerance); err != nil {
		return nil, opts, err
	}
	if err := setString(cmd, "proxy", &cfg.ProxyAddress); err != nil {
		return nil, opts, err
	}

	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return nil, opts, err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return nil, opts, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return nil, opts, err
	}
	if opts.meta, err = cmd.Flags().GetBool("meta"); err != nil {
		return nil, opts, err
	}
	if opts.routes, err = cmd.Flags().GetBool("routes"); err != nil {
		return nil, opts, err
	}

	return cfg, opts, nil
}

// runCrawl crawls every city and mode and writes one report.
// Partial results are reported even when the crawl was interrupted.
func runCrawl(ctx context.Context, cfg *config.Config, opts crawlOptions, cities []string, stdout io.Writer, logger *slog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	crawlerOpts := []pipeline.CrawlerOption{
		pipeline.WithStore(a.store),
		pipeline.WithTraffic(a.client),
		pipeline.WithPause(cfg.RequestPause, cfg.JitterMin, cfg.JitterMax),
		pipeline.WithAnyAge(cfg.Offline),
		pipeline.WithCrawlerLogger(logger),
	}
	if cfg.SaveHistory {
		crawlerOpts = append(crawlerOpts, pipeline.WithHistory(a.db))
	}

	assembler := graph.NewAssembler(a.site,
		graph.WithTolerance(cfg.StopTolerance),
		graph.WithLogger(logger),
	)
	c := pipeline.NewCrawler(a.site, assembler, crawlerOpts...)

	bp := pipeline.NewBatchProcessor(c.Crawl,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithOfflineBatch(cfg.Offline),
		pipeline.WithUseCache(cfg.UseCache),
		pipeline.WithBatchLogger(logger),
	)

	jobs := pipeline.Jobs(cities, cfg.Modes)
	logger.Info("starting crawl",
		"cities", cities,
		"modes", len(cfg.Modes),
		"offline", cfg.Offline,
		"useCache", cfg.UseCache,
	)

	start := time.Now()
	results, crawlErr := bp.ProcessBatch(ctx, jobs)
	if results == nil && crawlErr != nil {
		return crawlErr
	}

	done := make([]*pipeline.CrawlResult, 0, len(results))
	failed := 0
	for _, res := range results {
		if res == nil {
			continue
		}
		done = append(done, res)
		if res.Status == database.RunStatusFailed {
			failed++
		}
	}

	stats := a.client.Stats()
	logger.Info("crawl complete",
		"jobs", len(done),
		"failed", failed,
		"requests", stats.Requests,
		"network", stats.NetworkHits,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	if err := outputReport(cfg, opts, stdout, done); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl interrupted: %w", crawlErr)
	}
	if len(done) > 0 && failed == len(done) {
		return errAllCrawlsFailed
	}
	return nil
}

// outputReport writes results in the requested format to the report
// file or stdout.
func outputReport(cfg *config.Config, opts crawlOptions, stdout io.Writer, results []*pipeline.CrawlResult) error {
	output := stdout
	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var w report.Writer
	switch {
	case cfg.JSONReport && opts.meta:
		w = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output, report.WithRouteTable(opts.routes))
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(opts.routes))
	}

	_, err := w.Write(results...)
	return err
}
