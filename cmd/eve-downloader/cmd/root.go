package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eve-utils/eveclient-downloader/internal/domain/server"
	"github.com/eve-utils/eveclient-downloader/internal/service/downloader"
	"github.com/eve-utils/eveclient-downloader/internal/version"
)

const envPrefix = "EVEDL"

// Flag keys shared by viper and cobra.
const (
	keyConfig      = "config"
	keyServer      = "server"
	keyCacheDir    = "cache-dir"
	keyBinariesURL = "binaries-url"
	keyLogLevel    = "log-level"
	keyForce       = "force"
)

var (
	// settings resolves flag values, falling back to EVEDL_* environment variables.
	settings = viper.New()

	// rootCmd represents the base command for fetching the client.
	rootCmd = &cobra.Command{
		Use:   "eve-downloader [target-dir]",
		Short: "Download or update the EVE Online client.",
		Long: `Brings a local EVE Online client installation up to date with the current build.

Resolves the build published for the selected server, downloads its file index
and then processes every file in order: files that already match are skipped,
matching files from the cache directory are copied, everything else is
downloaded and checked against its MD5 digest before it is written.

The first failure stops the run. Files written before it stay in place, so
running the command again resumes where it stopped.

Every flag can also be set through the environment, e.g. EVEDL_SERVER=sisi.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return downloader.Run(ctx, options(args))
		},
	}
)

// Execute runs the eve-downloader CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// options collects flag and environment values. An optional first argument is the target directory.
func options(args []string) *downloader.Options {
	opts := &downloader.Options{
		ConfigPath:  settings.GetString(keyConfig),
		Server:      settings.GetString(keyServer),
		CacheDir:    settings.GetString(keyCacheDir),
		BinariesURL: settings.GetString(keyBinariesURL),
		LogLevel:    settings.GetString(keyLogLevel),
		SkipGuard:   settings.GetBool(keyForce),
	}

	if len(args) > 0 {
		opts.TargetDir = args[0]
	}

	return opts
}

func completeServers(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return server.Names(), cobra.ShellCompDirectiveNoFileComp
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()

	// Setup command flags with consistent naming and descriptions.
	flags.StringP(keyConfig, "c", "", "path to configuration file")
	flags.StringP(keyServer, "s", "", "server name or code: "+strings.Join(server.Names(), ", "))
	flags.String(keyCacheDir, "", "directory with another installation to copy matching files from")
	flags.String(keyBinariesURL, "", "base URL of the binaries host")
	flags.String(keyLogLevel, "", "log level: debug, info, warn, error")

	rootCmd.Flags().BoolP(keyForce, "f", false, "run even if the game client is running")

	if err := rootCmd.RegisterFlagCompletionFunc(keyServer, completeServers); err != nil {
		panic(err)
	}

	if err := flags.MarkHidden(keyBinariesURL); err != nil {
		panic(err)
	}

	if err := settings.BindPFlags(flags); err != nil {
		panic(err)
	}

	if err := settings.BindPFlag(keyForce, rootCmd.Flags().Lookup(keyForce)); err != nil {
		panic(err)
	}

	settings.SetEnvPrefix(envPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	rootCmd.AddCommand(buildCmd, verifyCmd, initConfigCmd)
}
