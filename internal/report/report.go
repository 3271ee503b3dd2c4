// Package report renders end-of-run summaries as terminal tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/discovery"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/reclassify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/scrape"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

const maxTitle = 60

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}

// Discovery renders a discovery run result.
func Discovery(w io.Writer, res discovery.Result) {
	t := newTable(w, fmt.Sprintf("Discovery %s (%s)", res.SourceID, res.RunID))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Rounds", res.Rounds},
		{"Advance attempts", res.AdvanceAttempts},
		{"Candidates", res.Candidates},
		{"New", res.New},
		{"Already known", res.Existing},
		{"Rejected", res.Rejected},
		{"Failed", res.Failed},
		{"Stop reason", res.StopReason},
		{"Duration", res.Duration.Round(time.Millisecond)},
	})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

// Scrape renders a scrape run summary with the per-status and per-category counts.
func Scrape(w io.Writer, sum scrape.Summary) {
	t := newTable(w, fmt.Sprintf("Scrape %s (%s)", sum.SourceID, sum.RunID))
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Processed", sum.Processed},
		{"Scraped", sum.Scraped},
		{"Duplicates", sum.Duplicates},
		{"Filtered out", sum.FilteredOut},
		{"Failed", sum.Failed},
		{"Stuck in scraping", sum.Stuck},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Escalated", sum.Escalated},
		{"Extraction failures", sum.ExtractionFailures},
		{"Needs review", sum.NeedsReview},
	})
	if len(sum.Categories) > 0 {
		t.AppendSeparator()
		for _, c := range sortedCategories(sum.Categories) {
			t.AppendRow(table.Row{"Category " + string(c), sum.Categories[c]})
		}
	}
	t.AppendFooter(table.Row{"Duration", sum.Duration.Round(time.Millisecond)})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	t.Render()
}

// FrontierStats renders per (source, status) counts with a total.
func FrontierStats(w io.Writer, counts []story.StatusCount) {
	t := newTable(w, "Frontier")
	t.AppendHeader(table.Row{"Source", "Status", "Count"})
	total := 0
	for _, c := range counts {
		t.AppendRow(table.Row{c.SourceID, c.Status, c.Count})
		total += c.Count
	}
	t.AppendFooter(table.Row{"", "Total", total})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Align: text.AlignRight}})
	t.Render()
}

// Sources renders the source registry.
func Sources(w io.Writer, defs []sources.Definition) {
	t := newTable(w, "Sources")
	t.AppendHeader(table.Row{"ID", "Name", "Listing", "Story prefixes", "Advance", "Headless"})
	for _, d := range defs {
		advance := "none"
		switch {
		case d.LoadMoreSelector != "":
			advance = "load more"
		case d.NextSelector != "":
			advance = "next page"
		}
		t.AppendRow(table.Row{d.ID, d.Name, d.ListingURL, strings.Join(d.StoryPrefixes, "\n"), advance, d.Headless})
	}
	t.Render()
}

// Reclassify renders the change table of a reclassification pass, then its totals.
func Reclassify(w io.Writer, rep reclassify.Report) {
	mode := "apply"
	if rep.DryRun {
		mode = "dry run"
	}
	t := newTable(w, fmt.Sprintf("Reclassification %s, rules %s (%s)", mode, rep.RuleSetVersion, rep.RunID))
	t.AppendHeader(table.Row{"Story", "Source", "Title", "Old", "New", "Confidence", "Method", "Outcome"})
	for _, c := range rep.Changes {
		t.AppendRow(table.Row{
			c.StoryID,
			c.SourceID,
			text.Trim(c.Title, maxTitle),
			c.OldCategory,
			c.Verdict.Category,
			fmt.Sprintf("%.2f", c.Verdict.Confidence),
			c.Verdict.Method,
			c.Outcome,
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 6, Align: text.AlignRight}})
	t.Render()

	totals := newTable(w, "")
	totals.AppendRows([]table.Row{
		{"Examined", rep.Examined},
		{"Unchanged", rep.Unchanged},
		{"Changes", len(rep.Changes)},
		{"Applied", rep.Applied},
		{fmt.Sprintf("Skipped (< %.2f)", rep.MinConfidence), rep.Skipped},
		{"Needs escalation", rep.NeedsEscalation},
		{"Failed", rep.Failed},
		{"Audit failures", rep.AuditFailures},
		{"Escalated", rep.Escalated},
		{"Extraction failures", rep.ExtractionFailures},
	})
	totals.Render()
}

// Review renders stories waiting for human review.
func Review(w io.Writer, stories []story.Story) {
	t := newTable(w, "Needs review")
	t.AppendHeader(table.Row{"Story", "Source", "Title", "Category", "Method", "Reason"})
	for _, st := range stories {
		t.AppendRow(table.Row{
			st.ID,
			st.SourceID,
			text.Trim(st.Title, maxTitle),
			st.Category(),
			st.Classification.Method,
			text.Trim(st.Classification.Reasoning, maxTitle),
		})
	}
	t.Render()
}

func sortedCategories(m map[story.Category]int) []story.Category {
	out := make([]story.Category, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
