// Package story defines the domain types shared by the story acquisition pipeline.
package story

import (
	"encoding/json"
	"net/http"
	"time"
)

// FrontierStatus is the lifecycle state of a discovered URL.
type FrontierStatus string

// Frontier status values persisted in discovered_urls.status.
const (
	StatusPending     FrontierStatus = "pending"
	StatusScraping    FrontierStatus = "scraping"
	StatusScraped     FrontierStatus = "scraped"
	StatusFailed      FrontierStatus = "failed"
	StatusFilteredOut FrontierStatus = "filtered_out"
)

// AllStatuses lists every frontier status in lifecycle order.
func AllStatuses() []FrontierStatus {
	return []FrontierStatus{StatusPending, StatusScraping, StatusScraped, StatusFailed, StatusFilteredOut}
}

// ParseStatus converts a raw string into a known status.
func ParseStatus(raw string) (FrontierStatus, bool) {
	s := FrontierStatus(raw)
	return s, s.Valid()
}

// Valid reports whether s is a known status.
func (s FrontierStatus) Valid() bool {
	switch s {
	case StatusPending, StatusScraping, StatusScraped, StatusFailed, StatusFilteredOut:
		return true
	}
	return false
}

// Terminal reports whether s ends a scrape attempt.
func (s FrontierStatus) Terminal() bool {
	return s == StatusScraped || s == StatusFailed || s == StatusFilteredOut
}

// CanAdvance reports whether the scrape driver may move an item from s to next.
// Items are claimed (pending → scraping) and then settled (scraping → terminal).
func (s FrontierStatus) CanAdvance(next FrontierStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusScraping
	case StatusScraping:
		return next.Terminal()
	default:
		return false
	}
}

// Resettable reports whether an operator may send an item in status s back to pending.
func (s FrontierStatus) Resettable() bool {
	return s == StatusFailed || s == StatusScraping || s == StatusFilteredOut
}

// DiscoveredURL is one row of the crawl frontier.
type DiscoveredURL struct {
	ID                   int64          `json:"id"`
	SourceID             string         `json:"source_id"`
	URL                  string         `json:"url"`
	InferredCustomerName string         `json:"inferred_customer_name,omitempty"`
	InferredTitle        string         `json:"inferred_title,omitempty"`
	InferredPublishDate  *time.Time     `json:"inferred_publish_date,omitempty"`
	DiscoveredAt         time.Time      `json:"discovered_at"`
	LastAttemptAt        *time.Time     `json:"last_attempt_at,omitempty"`
	AttemptCount         int            `json:"attempt_count"`
	Status               FrontierStatus `json:"status"`
	LastError            string         `json:"last_error,omitempty"`
	Notes                string         `json:"notes,omitempty"`
}

// Candidate is a listing-page hit ready to be enqueued.
type Candidate struct {
	URL          string     `json:"url"`
	CustomerName string     `json:"customer_name,omitempty"`
	Title        string     `json:"title,omitempty"`
	PublishDate  *time.Time `json:"publish_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// StatusCount aggregates frontier rows per source and status.
type StatusCount struct {
	SourceID string         `json:"source_id"`
	Status   FrontierStatus `json:"status"`
	Count    int            `json:"count"`
}

// Category is the AI category assigned to a story.
type Category string

// Category values.
const (
	CategoryGenAI       Category = "GenAI"
	CategoryTraditional Category = "Traditional"
	CategoryUnclear     Category = "Unclear"
)

// IsGenAI maps the category onto the nullable stories.is_gen_ai column.
func (c Category) IsGenAI() *bool {
	switch c {
	case CategoryGenAI:
		v := true
		return &v
	case CategoryTraditional:
		v := false
		return &v
	default:
		return nil
	}
}

// CategoryFromFlag is the inverse of Category.IsGenAI.
func CategoryFromFlag(flag *bool) Category {
	switch {
	case flag == nil:
		return CategoryUnclear
	case *flag:
		return CategoryGenAI
	default:
		return CategoryTraditional
	}
}

// Method names the decision step that produced a verdict.
type Method string

// Method values.
const (
	MethodTier1      Method = "tier1"
	MethodTier2      Method = "tier2"
	MethodTier3      Method = "tier3"
	MethodTier4      Method = "tier4"
	MethodExtraction Method = "extraction"
)

// Verdict is the classification outcome embedded in a Story.
type Verdict struct {
	Category           Category `json:"category"`
	Confidence         float64  `json:"confidence"`
	Method             Method   `json:"method"`
	Evidence           []string `json:"evidence"`
	RequiresEscalation bool     `json:"requires_escalation"`
	PrimaryMatch       bool     `json:"primary_match,omitempty"`
	RuleSetVersion     string   `json:"rule_set_version,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
}

// Metadata is the page metadata captured alongside the raw HTML.
type Metadata struct {
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	WordCount     int        `json:"word_count"`
	Images        []string   `json:"images,omitempty"`
	ExternalLinks []string   `json:"external_links,omitempty"`
	PublishDate   *time.Time `json:"publish_date,omitempty"`
}

// ScrapingInfo records how the content was acquired.
type ScrapingInfo struct {
	ScrapedAt  time.Time `json:"scraped_at"`
	FinalURL   string    `json:"final_url"`
	StatusCode int       `json:"status_code"`
	Fetcher    string    `json:"fetcher"`
	ArchiveURI string    `json:"archive_uri,omitempty"`
	RunID      string    `json:"run_id,omitempty"`
}

// RawContent is the persisted raw_content document.
type RawContent struct {
	HTML         string       `json:"html"`
	Text         string       `json:"text"`
	Metadata     Metadata     `json:"metadata"`
	ScrapingInfo ScrapingInfo `json:"scraping_info"`
}

// Extraction is the structured record returned by the extraction service.
// Fields holds the business payload and is opaque to classification.
type Extraction struct {
	Category      Category        `json:"category"`
	Confidence    float64         `json:"confidence"`
	Reasoning     string          `json:"reasoning,omitempty"`
	KeyIndicators []string        `json:"key_indicators,omitempty"`
	Fields        json.RawMessage `json:"fields,omitempty"`
}

// ExtractionRequest is the input sent to the extraction service.
type ExtractionRequest struct {
	URL          string
	Title        string
	CustomerName string
	Text         string
}

// Story is the persisted output of a successful scrape.
type Story struct {
	ID             int64       `json:"id"`
	SourceID       string      `json:"source_id"`
	CustomerName   string      `json:"customer_name"`
	Title          string      `json:"title"`
	URL            string      `json:"url"`
	ContentHash    string      `json:"content_hash"`
	RawContent     RawContent  `json:"raw_content"`
	Extraction     *Extraction `json:"structured_extraction,omitempty"`
	IsGenAI        *bool       `json:"is_gen_ai"`
	Classification Verdict     `json:"classification_evidence"`
	NeedsReview    bool        `json:"needs_review"`
	ScrapedAt      time.Time   `json:"scraped_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	PublishDate    *time.Time  `json:"publish_date,omitempty"`
}

// Category returns the story's current category, preferring the recorded verdict.
func (s Story) Category() Category {
	if s.Classification.Category != "" {
		return s.Classification.Category
	}
	return CategoryFromFlag(s.IsGenAI)
}

// StoryFilter narrows the stories considered by a reclassification pass.
type StoryFilter struct {
	SourceID    string
	OnlyFlagged bool
	Limit       int
}

// AuditEntry is one applied reclassification change.
type AuditEntry struct {
	RunID          string    `json:"run_id"`
	StoryID        int64     `json:"story_id"`
	OldCategory    Category  `json:"old_category"`
	NewCategory    Category  `json:"new_category"`
	Confidence     float64   `json:"confidence"`
	Method         Method    `json:"method"`
	Evidence       []string  `json:"evidence"`
	RuleSetVersion string    `json:"rule_set_version"`
	CreatedAt      time.Time `json:"created_at"`
}

// FetchResult is returned by a page fetcher.
type FetchResult struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	Fetcher    string
}

// ListingOptions tells a listing session how to reveal more content.
type ListingOptions struct {
	NextSelector     string
	LoadMoreSelector string
}
