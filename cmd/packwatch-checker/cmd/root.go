package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/service/checker"
	"github.com/oshokin/packwatch/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// once runs a single round instead of polling.
	once bool
	// interval overrides the configured pause between rounds.
	interval time.Duration
	// healthAddress overrides the health endpoint address from the settings file.
	healthAddress string
	// logLevel sets the minimum level of printed logs.
	logLevel string

	// rootCmd represents the base command for checking instance freshness.
	rootCmd = &cobra.Command{
		Use:   "packwatch-checker",
		Short: "Check installed modpacks for newer versions.",
		Long: `Queries CurseForge and the Technic Platform for every installed instance
with update checks enabled and prints which instances have a newer version.

CurseForge instances are checked with one batched request, Technic instances
with a bounded number of concurrent requests. Instances removed upstream get
update checks disabled in their instance file.

Without --once the check repeats on the configured interval, and the gRPC
health endpoint is served when health_address is set in the settings.`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)
			logger.SetLogger(logger.New(nil, cmd.ErrOrStderr()))

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return checker.Run(ctx, &checker.Options{
				ConfigPath:    configPath,
				Once:          once,
				Interval:      interval,
				HealthAddress: healthAddress,
				Output:        cmd.OutOrStdout(),
			})
		},
	}
)

// Execute runs the packwatch-checker CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&once, "once", false, "check once and exit")
	rootCmd.Flags().StringVar(&healthAddress, "health-addr", "", "gRPC health endpoint address, overrides the settings file")
	rootCmd.Flags().DurationVar(&interval, "interval", 0, "pause between checks, overrides the settings file")
}
