package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/citec-spbu/Transport/internal/config"
	"github.com/citec-spbu/Transport/internal/model"
)

// NewRoutesCmd creates the routes command.
func NewRoutesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routes <city>",
		Short: "Print the route index of a city",
		Long: `Routes resolves the city and prints the routes listed on its page for the
given transport mode: number, name and site path.

Examples:
  transitcrawl routes Пермь
  transitcrawl routes --mode tram Пермь`,
		Args: cobra.ExactArgs(1),
		RunE: runRoutesCmd,
	}

	cmd.Flags().StringP("mode", "M", "bus", "Transport mode: bus, tram, trolleybus, minibus")
	cmd.Flags().Bool("offline", false, "Read the listing from cached pages only")

	return cmd
}

// runRoutesCmd executes the routes command.
func runRoutesCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	modeName, err := cmd.Flags().GetString("mode")
	if err != nil {
		return err
	}
	modes, err := config.ParseModes([]string{modeName})
	if err != nil {
		return err
	}
	mode := modes[0]

	if cfg.Offline, err = cmd.Flags().GetBool("offline"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cfg)
	ctx, cancel := signalContext(logger)
	defer cancel()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	city := args[0]
	cityPath, err := a.site.ResolveCityURL(ctx, city)
	if err != nil {
		return err
	}

	routes := a.site.ResolveRoutes(ctx, cityPath, mode)
	if len(routes) == 0 {
		return errors.New("no routes listed for " + city + " (" + mode.String() + ")")
	}
	printRoutes(cmd.OutOrStdout(), city, mode, routes)
	return nil
}

// printRoutes writes the route index as an aligned table.
func printRoutes(w io.Writer, city string, mode model.TransportMode, routes []model.RouteRef) {
	fmt.Fprintf(w, "%s / %s: %d routes\n\n", city, mode, len(routes))
	fmt.Fprintf(w, "  %-8s  %-40s  %s\n", "Number", "Name", "Path")
	for _, r := range routes {
		fmt.Fprintf(w, "  %-8s  %-40s  %s\n", r.Number, r.Name, r.URL)
	}
}
