package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/citec-spbu/Transport/internal/cache"
	"github.com/citec-spbu/Transport/internal/config"
	"github.com/citec-spbu/Transport/internal/database"
)

// NewCacheCmd creates the cache command with its stats and purge subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and purge cached pages and route documents",
		Long: `Cache reports on and cleans the two persistent caches: downloaded pages in
the database and parsed route documents in the cache directory.

Entries older than the cache expiry are stale. Stale entries are not
used by online crawls, but --offline crawls still read them.`,
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCachePurgeCmd())

	return cmd
}

func newCacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size and staleness",
		Args:  cobra.NoArgs,
		RunE:  runCacheStatsCmd,
	}
}

func newCachePurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove stale cache entries",
		Long: `Purge removes cached pages and route documents older than the cache expiry.
With --all every entry is removed.`,
		Args: cobra.NoArgs,
		RunE: runCachePurgeCmd,
	}
	cmd.Flags().Bool("all", false, "Remove every entry regardless of age")
	return cmd
}

// openCaches loads the configuration and opens both caches.
func openCaches(cmd *cobra.Command) (*config.Config, *database.CrawlDB, *cache.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("configuration error: %w", err)
	}
	setupLogger(cfg)

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, db, cache.NewStore(cfg.CacheDir, cfg.CacheExpiry), nil
}

func runCacheStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, db, store, err := openCaches(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetResponseStats(context.Background(), cfg.CacheExpiry)
	if err != nil {
		return err
	}
	usage, err := store.Usage()
	if err != nil {
		return fmt.Errorf("failed to scan cache directory: %w", err)
	}

	writeCacheStats(cmd.OutOrStdout(), cfg, db.Path(), stats, usage)
	return nil
}

// writeCacheStats prints both caches side by side.
func writeCacheStats(w io.Writer, cfg *config.Config, dbPath string, stats *database.ResponseStats, usage cache.Usage) {
	fmt.Fprintf(w, "Cache expiry: %s\n\n", cfg.CacheExpiry)

	fmt.Fprintf(w, "Pages (%s)\n", dbPath)
	fmt.Fprintf(w, "  entries: %d (%d stale)\n", stats.Count, stats.Stale)
	fmt.Fprintf(w, "  size:    %s\n", humanize.IBytes(uint64(max(stats.Bytes, 0))))
	if stats.Count > 0 {
		fmt.Fprintf(w, "  oldest:  %s (%s)\n", stats.Oldest.Format(time.DateTime), humanize.Time(stats.Oldest))
		fmt.Fprintf(w, "  newest:  %s (%s)\n", stats.Newest.Format(time.DateTime), humanize.Time(stats.Newest))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Route documents (%s)\n", cfg.CacheDir)
	fmt.Fprintf(w, "  files:   %d (%d stale)\n", usage.Files, usage.Stale)
	fmt.Fprintf(w, "  size:    %s\n", humanize.IBytes(uint64(max(usage.Bytes, 0))))
}

func runCachePurgeCmd(cmd *cobra.Command, _ []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}

	cfg, db, store, err := openCaches(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	maxAge := cfg.CacheExpiry
	if all {
		maxAge = 0
		store.Expiry = -time.Second
	}

	pages, err := db.PurgeResponses(context.Background(), maxAge)
	if err != nil {
		return err
	}
	docs, err := store.PurgeStale()
	if err != nil {
		return fmt.Errorf("failed to purge cache directory: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d pages and %d route documents.\n", pages, docs)
	return nil
}
