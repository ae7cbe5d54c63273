package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eve-utils/eveclient-downloader/internal/service/downloader"
)

// buildCmd prints the build currently published for the server.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Print the current build id of the server.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		build, err := downloader.CurrentBuild(ctx, options(nil))
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), build)

		return err
	},
}
