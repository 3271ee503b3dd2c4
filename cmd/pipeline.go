package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/app"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/report"
)

// newDiscoverCmd creates the 'discover' subcommand.
func newDiscoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover <source>",
		Short: "Walks a source's listing and enqueues new story URLs",
		Long: `Opens the listing page of a source, reveals more content until the page
stops producing new links (or a cap is hit) and enqueues every valid story URL
as pending. Already-known URLs only have their metadata refreshed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				res, err := a.Discover(cmd.Context(), args[0])
				a.PushMetrics(cmd.Context(), map[string]string{"source": args[0], "action": "discover"})
				if errors.Is(err, context.Canceled) {
					a.Logger().Warn("discovery interrupted", zap.Int("new", res.New))
					report.Discovery(cmd.OutOrStdout(), res)
					return nil
				}
				if err != nil {
					return err
				}
				report.Discovery(cmd.OutOrStdout(), res)
				return nil
			})
		},
	}
}

// newScrapeCmd creates the 'scrape' subcommand.
func newScrapeCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "scrape <source>",
		Short: "Fetches, classifies and stores pending story URLs",
		Long: `Claims pending frontier items of a source in politeness-spaced batches,
fetches and classifies each page and stores eligible stories. Per-item failures
are recorded on the frontier item and do not fail the command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				n := a.Config().Scrape.Limit
				if cmd.Flags().Changed("limit") {
					n = limit
				}
				if n < 0 {
					return errors.New("--limit must be >= 0")
				}
				sum, err := a.Scrape(cmd.Context(), args[0], n)
				a.PushMetrics(cmd.Context(), map[string]string{"source": args[0], "action": "scrape"})
				if errors.Is(err, context.Canceled) {
					a.Logger().Warn("scrape interrupted", zap.Int("processed", sum.Processed))
					report.Scrape(cmd.OutOrStdout(), sum)
					return nil
				}
				if err != nil {
					return err
				}
				report.Scrape(cmd.OutOrStdout(), sum)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of pending items to process (0 = all)")
	return cmd
}

// newMigrateCmd creates the 'migrate' subcommand.
func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the frontier, story and audit tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				if err := a.Migrate(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return err
			})
		},
	}
}
