package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arturoeanton/launchpad-match/internal/app"
	"github.com/arturoeanton/launchpad-match/internal/logger"
	"github.com/arturoeanton/launchpad-match/pkg/config"
)

var (
	// Used for flags.
	cfgFile string
	debug   bool
	jsonLog bool

	rootCmd = &cobra.Command{
		Use:           "launchpadctl",
		Short:         "launchpadctl serves and operates the LaunchPad job matching service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a YAML config file (environment variables take precedence)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&jsonLog, "json", "j", false, "json format for logging")
}

// setup loads the configuration and wires the application.
func setup(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("debug") {
		cfg.LogDebug = debug
	}
	if cmd.Flags().Changed("json") {
		cfg.LogJSON = jsonLog
	}

	lg, err := logger.New(cfg.LogJSON, cfg.LogDebug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		lg.Error("wiring failed", zap.Error(err))
		return nil, err
	}
	return a, nil
}
