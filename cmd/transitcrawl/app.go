package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/citec-spbu/Transport/internal/cache"
	"github.com/citec-spbu/Transport/internal/config"
	"github.com/citec-spbu/Transport/internal/crawler"
	"github.com/citec-spbu/Transport/internal/database"
	"github.com/citec-spbu/Transport/internal/fetch"
	tlog "github.com/citec-spbu/Transport/internal/log"
)

// loadConfig builds the configuration shared by all commands: defaults,
// then the config file, then the environment, then the global flags.
// Command specific flags are applied by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// An explicit path must exist; otherwise a missing file is fine.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		if err := file.ApplyTo(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply config file %s: %w", configPath, err)
		}
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnv(cfg, envFile); err != nil {
		return nil, err
	}

	if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.JSONLog, err = cmd.Flags().GetBool("json-log"); err != nil {
		return nil, err
	}
	if err := setString(cmd, "site", &cfg.SiteURL); err != nil {
		return nil, err
	}
	if err := setString(cmd, "cache-dir", &cfg.CacheDir); err != nil {
		return nil, err
	}
	if err := setString(cmd, "db-dir", &cfg.DBDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setString copies a flag into dst when the user set it explicitly.
// Flags that are not defined on cmd are ignored.
func setString(cmd *cobra.Command, name string, dst *string) error {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// setDuration is setString for duration flags.
func setDuration(cmd *cobra.Command, name string, dst *time.Duration) error {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetDuration(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// setInt is setString for int flags.
func setInt(cmd *cobra.Command, name string, dst *int) error {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// setFloat is setString for float64 flags.
func setFloat(cmd *cobra.Command, name string, dst *float64) error {
	if f := cmd.Flags().Lookup(name); f == nil || !f.Changed {
		return nil
	}
	v, err := cmd.Flags().GetFloat64(name)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// setupLogger creates the process logger and installs it as the default.
func setupLogger(cfg *config.Config) *slog.Logger {
	logger := tlog.NewLogger(os.Stderr, cfg.Verbose, cfg.JSONLog)
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing current route...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// app holds the components shared by the commands that read the site.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.CrawlDB
	client *fetch.Client
	store  *cache.Store
	site   *crawler.Site
}

// newApp opens the database and wires the fetch client and the site reader.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	logger.Debug("database opened", "path", db.Path())

	httpClient, err := fetch.NewHTTPClient(cfg.ProxyAddress, cfg.UserAgent)
	if err != nil {
		_ = db.Close() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	client := fetch.NewClient(httpClient,
		fetch.WithStore(db),
		fetch.WithMemoryCache(cfg.MemoryCacheSize),
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithMaxAge(cfg.CacheExpiry),
		fetch.WithRetry(cfg.MaxRetries, cfg.RetryInterval),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithReadCache(cfg.UseCache || cfg.Offline),
		fetch.WithOffline(cfg.Offline),
		fetch.WithLogger(logger),
	)

	store := cache.NewStore(cfg.CacheDir, cfg.CacheExpiry)

	site, err := crawler.NewSite(client, cfg.SiteURL,
		crawler.WithCityStore(store),
		crawler.WithCityOverrides(cfg.CityPaths),
		crawler.WithRequestTimeout(cfg.Timeout),
		crawler.WithMainPageTimeout(cfg.MainPageTimeout),
		crawler.WithRegionPause(cfg.RegionPause),
		crawler.WithLogger(logger),
	)
	if err != nil {
		_ = db.Close() //nolint:errcheck // Best effort cleanup
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		client: client,
		store:  store,
		site:   site,
	}, nil
}

// Close releases the database.
func (a *app) Close() error {
	return a.db.Close()
}
