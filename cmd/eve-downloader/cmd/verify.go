package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eve-utils/eveclient-downloader/internal/service/downloader"
)

// verifyCmd checks an installation without changing it.
var verifyCmd = &cobra.Command{
	Use:   "verify [target-dir]",
	Short: "List files that differ from the current build.",
	Long: `Compares every file of the current build with the target directory and prints
the ones that are missing or modified. Nothing is downloaded or written.
Exits with non-zero status when at least one file is out of date.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		report, err := downloader.VerifyTree(ctx, options(args))
		if report != nil {
			out := cmd.OutOrStdout()

			for _, outcome := range report.Outcomes {
				if outcome.Action == downloader.ActionStale {
					_, _ = fmt.Fprintln(out, outcome.Path)
				}
			}
		}

		return err
	},
}
