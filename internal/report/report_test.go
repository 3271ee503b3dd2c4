package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/discovery"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/reclassify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/scrape"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

func TestScrapeRendersCounts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Scrape(&buf, scrape.Summary{
		RunID:      "run-1",
		SourceID:   "anthropic",
		Processed:  4,
		Scraped:    2,
		Duplicates: 1,
		Failed:     1,
		Categories: map[story.Category]int{story.CategoryGenAI: 2, story.CategoryUnclear: 1},
		Duration:   1500 * time.Millisecond,
	})
	out := buf.String()
	require.Contains(t, out, "Scrape anthropic (run-1)")
	require.Contains(t, out, "Duplicates")
	require.Contains(t, out, "Category GenAI")
	require.Contains(t, out, "1.5s")
}

func TestDiscoveryRendersStopReason(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Discovery(&buf, discovery.Result{SourceID: "openai", New: 3, StopReason: discovery.StopIdle})
	require.Contains(t, buf.String(), "idle_rounds")
}

func TestFrontierStatsRendersTotal(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	FrontierStats(&buf, []story.StatusCount{
		{SourceID: "aws", Status: story.StatusPending, Count: 7},
		{SourceID: "aws", Status: story.StatusFailed, Count: 2},
	})
	out := buf.String()
	require.Contains(t, out, "pending")
	require.Contains(t, out, "9")
}

func TestSourcesRendersRegistry(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Sources(&buf, sources.Builtin())
	out := buf.String()
	for _, id := range sources.IDs() {
		require.Contains(t, out, id)
	}
	require.Contains(t, out, "load more")
}

func TestReclassifyRendersChanges(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Reclassify(&buf, reclassify.Report{
		RunID:           "run-9",
		RuleSetVersion:  "v2",
		DryRun:          true,
		MinConfidence:   0.8,
		Examined:        2,
		NeedsEscalation: 1,
		Changes: []reclassify.Change{{
			StoryID:     42,
			SourceID:    "anthropic",
			Title:       "Company deployed GPT-4 for support",
			OldCategory: story.CategoryTraditional,
			Verdict:     story.Verdict{Category: story.CategoryGenAI, Confidence: 1, Method: story.MethodTier1},
			Outcome:     reclassify.OutcomeProposed,
		}},
	})
	out := buf.String()
	require.Contains(t, out, "dry run")
	require.Contains(t, out, "Traditional")
	require.Contains(t, out, "1.00")
	require.Contains(t, out, "proposed")
	require.Contains(t, out, "Skipped (< 0.80)")
	require.Contains(t, out, "Needs escalation")
}
