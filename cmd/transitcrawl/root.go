package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for transitcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transitcrawl",
		Short: "Build public transport graphs from the kudikina.ru schedule site",
		Long: `transitcrawl crawls the kudikina.ru schedule site and builds, per city and
transport mode, a graph of stops connected by timed route segments.

Pages and parsed routes are cached, so repeated crawls only touch the
network for routes that changed or expired. Use --offline to rebuild graphs
from the cache alone.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .transitcrawl in current or home directory)")
	cmd.PersistentFlags().String("env-file", ".env", "Environment file with TRANSITCRAWL_* variables")
	cmd.PersistentFlags().String("site", "", "Schedule site root URL")
	cmd.PersistentFlags().String("cache-dir", "", "Directory for cached route documents")
	cmd.PersistentFlags().String("db-dir", "", "Directory for the response cache and crawl history database")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewCitiesCmd())
	cmd.AddCommand(NewRoutesCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
