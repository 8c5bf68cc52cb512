package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/packwatch/internal/config"
	"github.com/oshokin/packwatch/internal/logger"
	"github.com/oshokin/packwatch/internal/service/packager"
	"github.com/oshokin/packwatch/internal/service/runtime"
	"github.com/oshokin/packwatch/internal/version"
)

var (
	// configPath stores the path to the configuration YAML file.
	configPath string
	// logLevel sets the minimum level of printed logs.
	logLevel string
	// packageOptions collects the flags of the package subcommand.
	packageOptions packager.Options

	// rootCmd groups the runtime subcommands.
	rootCmd = &cobra.Command{
		Use:   "packwatch-runtime",
		Short: "Install, remove and package the launcher runtime.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)
			logger.SetLogger(logger.New(nil, cmd.ErrOrStderr()))

			return nil
		},
	}

	installCmd = &cobra.Command{
		Use:   "install",
		Short: "Download, verify and extract the runtime for this platform.",
		Long: `Fetches the runtime manifest from the download server, downloads the archive
for this platform, verifies its checksum and size, extracts it and points the
launcher runtime path at it. An already extracted runtime is reused without
any download.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			result, err := runtime.Install(ctx, &runtime.CommandOptions{ConfigPath: configPath})
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Path)

			return err
		},
	}

	removeCmd = &cobra.Command{
		Use:   "remove",
		Short: "Delete every installed runtime and restore the default runtime path.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return runtime.Uninstall(ctx, &runtime.CommandOptions{ConfigPath: configPath})
		},
	}

	packageCmd = &cobra.Command{
		Use:   "package <archive>",
		Short: "Add a runtime archive to a runtimes.json manifest.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := packageOptions
			options.ArchivePath = args[0]

			descriptor, err := packager.Run(ctx, &options)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %d\n", descriptor.URL, descriptor.SHA1, descriptor.Size)

			return err
		},
	}
)

// Execute runs the packwatch-runtime CLI and exits with non-zero status on error.
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

	packageCmd.Flags().StringVarP(&packageOptions.ManifestPath, "manifest", "m", packager.DefaultManifestFilename, "manifest to create or update")
	packageCmd.Flags().StringVar(&packageOptions.Version, "runtime-version", "", "runtime version, names the extracted folder")
	packageCmd.Flags().StringVar(&packageOptions.URLPrefix, "url-prefix", "runtimes", "archive folder relative to the download server")
	packageCmd.Flags().StringVar(&packageOptions.OS, "os", "", "manifest os: windows, osx or linux (default: this platform)")
	packageCmd.Flags().StringVar(&packageOptions.Arch, "arch", "", "manifest arch: x64, x86 or arm64 (default: this platform)")

	if err := packageCmd.MarkFlagRequired("runtime-version"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(installCmd, removeCmd, packageCmd)
}
