package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/app"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/report"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// newFrontierCmd groups the operator-only frontier commands.
func newFrontierCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frontier",
		Short: "Inspects and resets the crawl frontier",
	}
	cmd.AddCommand(newFrontierStatsCmd(), newFrontierResetCmd())
	return cmd
}

func newFrontierStatsCmd() *cobra.Command {
	var source string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Counts frontier items per source and status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sourceID, err := sourceFlag(source)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				counts, err := a.Stores().Frontier.Stats(cmd.Context(), sourceID)
				if err != nil {
					return fmt.Errorf("frontier stats: %w", err)
				}
				report.FrontierStats(cmd.OutOrStdout(), counts)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only this source")
	return cmd
}

func newFrontierResetCmd() *cobra.Command {
	var source, status string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Moves failed, stuck or filtered items back to pending",
		Long: `Resets frontier items in --status back to pending so the next scrape run
retries them. Use --status scraping to recover items left claimed by a run that
crashed. This is the only way an item returns to pending.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sourceID, err := sourceFlag(source)
			if err != nil {
				return err
			}
			from, ok := story.ParseStatus(strings.ToLower(strings.TrimSpace(status)))
			if !ok || !from.Resettable() {
				return fmt.Errorf("--status must be one of %s, %s, %s",
					story.StatusFailed, story.StatusScraping, story.StatusFilteredOut)
			}
			return withApp(cmd, func(a *app.App) error {
				n, err := a.Stores().Frontier.Reset(cmd.Context(), sourceID, from)
				if err != nil {
					return fmt.Errorf("frontier reset: %w", err)
				}
				scope := sourceID
				if scope == "" {
					scope = "all sources"
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "reset %d %s item(s) to %s (%s)\n", n, from, story.StatusPending, scope)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only this source")
	cmd.Flags().StringVar(&status, "status", "", "status to reset: failed, scraping or filtered_out")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

// newSourcesCmd creates the 'sources' subcommand. It needs no database.
func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Lists the built-in story sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report.Sources(cmd.OutOrStdout(), sources.Builtin())
			return nil
		},
	}
}

func sourceFlag(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	def, ok := sources.Lookup(raw)
	if !ok {
		return "", fmt.Errorf("unknown source %q (have %s)", raw, strings.Join(sources.IDs(), ", "))
	}
	return def.ID, nil
}
