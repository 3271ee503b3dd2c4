package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/app"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/classify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/reclassify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/report"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

type reclassifyFlags struct {
	dryRun        bool
	apply         bool
	minConfidence float64
	source        string
	rules         string
	flaggedOnly   bool
	limit         int
	escalate      bool
}

func (f reclassifyFlags) validate() error {
	if f.minConfidence <= 0 || f.minConfidence > 1 {
		return fmt.Errorf("--min-confidence must be within (0, 1], got %v", f.minConfidence)
	}
	if f.limit < 0 {
		return errors.New("--limit must be >= 0")
	}
	if f.source != "" {
		if _, ok := sources.Lookup(f.source); !ok {
			return fmt.Errorf("unknown source %q (have %s)", f.source, strings.Join(sources.IDs(), ", "))
		}
	}
	if f.rules != "" && !slices.Contains(classify.RuleSetVersions(), f.rules) {
		return fmt.Errorf("unknown rule set %q (have %s)", f.rules, strings.Join(classify.RuleSetVersions(), ", "))
	}
	return nil
}

// newReclassifyCmd creates the 'reclassify' subcommand.
func newReclassifyCmd() *cobra.Command {
	var f reclassifyFlags
	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Re-runs the classification rules over stored stories",
		Long: `Re-classifies every selected story from its stored title, URL and text.
Without --apply nothing is written and the proposed changes are listed. With
--apply, changes whose confidence reaches --min-confidence are written and
recorded in the classification audit log; the rest are reported as skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := f.validate(); err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				rep, err := a.Reclassify(cmd.Context(), f.rules, reclassify.Options{
					Filter: story.StoryFilter{
						SourceID:    strings.ToLower(strings.TrimSpace(f.source)),
						OnlyFlagged: f.flaggedOnly,
						Limit:       f.limit,
					},
					Apply:         f.apply && !f.dryRun,
					MinConfidence: f.minConfidence,
					Escalate:      f.escalate,
				})
				a.PushMetrics(cmd.Context(), map[string]string{"action": "reclassify"})
				if err != nil {
					return err
				}
				report.Reclassify(cmd.OutOrStdout(), rep)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&f.dryRun, "dry-run", false, "report proposed changes without writing (default unless --apply)")
	flags.BoolVar(&f.apply, "apply", false, "write changes that reach --min-confidence and audit them")
	flags.Float64Var(&f.minConfidence, "min-confidence", reclassify.DefaultMinConfidence, "minimum verdict confidence for an applied change")
	flags.StringVar(&f.source, "source", "", "only stories of this source")
	flags.StringVar(&f.rules, "rules", "", "rule set version (default from classification.rule_set)")
	flags.BoolVar(&f.flaggedOnly, "flagged-only", false, "only stories flagged for review or never classified")
	flags.IntVar(&f.limit, "limit", 0, "maximum number of stories to examine (0 = all)")
	flags.BoolVar(&f.escalate, "escalate", false, "send verdicts that still need escalation to the extraction service")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "apply")
	return cmd
}

// newReviewCmd creates the 'review' subcommand.
func newReviewCmd() *cobra.Command {
	var (
		source string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Lists stories flagged for human review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app.App) error {
				stories, err := a.Stores().Stories.ListNeedingReview(cmd.Context(), strings.ToLower(strings.TrimSpace(source)), limit)
				if err != nil {
					return fmt.Errorf("list review queue: %w", err)
				}
				report.Review(cmd.OutOrStdout(), stories)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "only stories of this source")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of stories to list")
	return cmd
}
