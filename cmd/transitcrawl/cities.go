package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
)

// NewCitiesCmd creates the cities command.
func NewCitiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cities [filter]",
		Short: "List the known cities and their site paths",
		Long: `Cities prints the city lookup used to resolve city names: the stored
lookup built from the site's region pages, merged with the manual entries
of the config file.

The lookup is rebuilt from the site when it is missing or expired, or
when --refresh is given. Rebuilding visits every region page.

Examples:
  # All cities
  transitcrawl cities

  # Cities whose name contains "перм"
  transitcrawl cities перм

  # Rebuild the lookup from the site
  transitcrawl cities --refresh`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCitiesCmd,
	}

	cmd.Flags().Bool("refresh", false, "Rebuild the city lookup from the site")

	return cmd
}

// runCitiesCmd executes the cities command.
func runCitiesCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	refresh, err := cmd.Flags().GetBool("refresh")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	cities, err := a.site.Cities(ctx, refresh)
	if err != nil {
		return fmt.Errorf("failed to load city lookup: %w", err)
	}

	var filter string
	if len(args) == 1 {
		filter = args[0]
	}
	printCities(cmd.OutOrStdout(), cities, filter)
	return nil
}

// printCities writes the cities whose name contains filter, sorted by name.
func printCities(w io.Writer, cities map[string]string, filter string) {
	folder := cases.Fold()
	want := folder.String(strings.TrimSpace(filter))

	names := slices.Sorted(maps.Keys(cities))
	shown := 0
	for _, name := range names {
		if want != "" && !strings.Contains(folder.String(name), want) {
			continue
		}
		fmt.Fprintf(w, "  %-30s %s\n", name, cities[name])
		shown++
	}

	if shown == 0 {
		fmt.Fprintln(w, "No matching cities found.")
		return
	}
	fmt.Fprintf(w, "\n%d of %d cities\n", shown, len(cities))
}
