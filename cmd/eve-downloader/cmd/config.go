package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eve-utils/eveclient-downloader/internal/config"
)

// initConfigCmd writes a settings file with every default filled in.
var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a default configuration file.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFilename
		if len(args) > 0 {
			path = args[0]
		}

		cfg := config.Default()

		if srv := settings.GetString(keyServer); srv != "" {
			cfg.Server = srv
		}

		if cacheDir := settings.GetString(keyCacheDir); cacheDir != "" {
			cfg.CacheDir = cacheDir
		}

		if err := config.Save(path, cfg); err != nil {
			return err
		}

		_, err := fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)

		return err
	},
}
