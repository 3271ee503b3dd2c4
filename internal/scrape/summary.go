package scrape

import (
	"time"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

// Outcome is the terminal result of one scrape attempt.
type Outcome string

// Outcome values.
const (
	OutcomeScraped     Outcome = "scraped"
	OutcomeDuplicate   Outcome = "duplicate"
	OutcomeFailed      Outcome = "failed"
	OutcomeFilteredOut Outcome = "filtered_out"
)

// Status maps the outcome onto the frontier status it settles to.
// A duplicate is a successful no-op.
func (o Outcome) Status() story.FrontierStatus {
	switch o {
	case OutcomeScraped, OutcomeDuplicate:
		return story.StatusScraped
	case OutcomeFilteredOut:
		return story.StatusFilteredOut
	default:
		return story.StatusFailed
	}
}

// Summary is the end-of-run report.
type Summary struct {
	RunID              string                 `json:"run_id"`
	SourceID           string                 `json:"source_id"`
	Processed          int                    `json:"processed"`
	Scraped            int                    `json:"scraped"`
	Duplicates         int                    `json:"duplicates"`
	Failed             int                    `json:"failed"`
	FilteredOut        int                    `json:"filtered_out"`
	Escalated          int                    `json:"escalated"`
	ExtractionFailures int                    `json:"extraction_failures"`
	NeedsReview        int                    `json:"needs_review"`
	Stuck              int                    `json:"stuck"`
	Categories         map[story.Category]int `json:"categories"`
	Duration           time.Duration          `json:"duration"`
}

func newSummary(sourceID string) Summary {
	return Summary{SourceID: sourceID, Categories: make(map[story.Category]int)}
}

func (s *Summary) record(o Outcome) {
	switch o {
	case OutcomeScraped:
		s.Scraped++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeFilteredOut:
		s.FilteredOut++
	default:
		s.Failed++
	}
}

// StatusCounts returns the per terminal-state counts an operator reads after a run.
// Duplicates settle as scraped.
func (s Summary) StatusCounts() map[story.FrontierStatus]int {
	return map[story.FrontierStatus]int{
		story.StatusScraped:     s.Scraped + s.Duplicates,
		story.StatusFailed:      s.Failed,
		story.StatusFilteredOut: s.FilteredOut,
	}
}
