// README: ridebook CLI; quotes, geocoding and scripted bookings from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ridebook/internal/config"
	"ridebook/internal/infra"
	"ridebook/internal/maps"
)

var (
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "ridebook",
	Short:         "Ride booking tools",
	Long:          `Quote vehicle tiers, resolve addresses and distances, and submit bookings to a ridebook API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := "warn"
		if verbose {
			level = "debug"
		}
		logger, err = infra.NewLogger(false, level)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.AddCommand(tiersCmd, quoteCmd, distanceCmd, geocodeCmd, bookCmd, assistCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func geoProvider() (maps.GeoProvider, error) {
	return maps.NewProvider(cfg.Maps.APIKey, cfg.Maps.Language, cfg.Maps.Region, cfg.Maps.DistanceFallback, logger)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
