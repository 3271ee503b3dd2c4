// Package scrape drains the frontier: it claims pending URLs, fetches and
// classifies them, and persists one Story per eligible page.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/classify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/content"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/frontier"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/metrics"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/telemetry"
)

// Defaults for Config.
const (
	DefaultBatchSize      = 10
	DefaultBatchPause     = 5 * time.Second
	DefaultFetchTimeout   = 45 * time.Second
	DefaultExtractTimeout = 90 * time.Second
	DefaultContentType    = "text/html; charset=utf-8"
	EventStoryCreated     = "story.created"
)

// Source fetches story pages for one source.
type Source interface {
	ID() string
	FetchStory(ctx context.Context, url string) (story.Page, error)
}

// Classifier decides a verdict from page fields.
type Classifier interface {
	Classify(in classify.Input) story.Verdict
}

// Config controls Driver behavior.
type Config struct {
	BatchSize      int
	BatchPause     time.Duration
	FetchTimeout   time.Duration
	ExtractTimeout time.Duration
	Eligibility    content.Eligibility
	// ExtractAlways requests business fields for every story, not only escalated ones.
	ExtractAlways bool
	ArchivePrefix string
	ContentType   string
	Topic         string
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchPause < 0 {
		c.BatchPause = 0
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	if c.ExtractTimeout <= 0 {
		c.ExtractTimeout = DefaultExtractTimeout
	}
	if c.ContentType == "" {
		c.ContentType = DefaultContentType
	}
	return c
}

// Deps are the Driver's collaborators. Extractor, Archive and Publisher are optional.
type Deps struct {
	Frontier   story.FrontierStore
	Stories    story.StoryStore
	Classifier Classifier
	Extractor  story.Extractor
	Archive    story.BlobStore
	Publisher  story.Publisher
	Hasher     story.Hasher
	Clock      story.Clock
	IDs        story.IDGenerator
	// Sleep waits between batches; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Driver runs scrape batches for one source at a time.
type Driver struct {
	deps   Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Driver.
func New(deps Deps, cfg Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	return &Driver{deps: deps, cfg: cfg.withDefaults(), logger: logger}
}

// Run processes up to limit pending items of src (zero means all of them).
// Item failures are recorded on the item and never abort the run; a frontier
// store that cannot be read or claimed from does.
func (d *Driver) Run(ctx context.Context, src Source, limit int) (sum Summary, err error) {
	sum = newSummary(src.ID())
	if d.deps.IDs != nil {
		runID, err := d.deps.IDs.NewID()
		if err != nil {
			return sum, fmt.Errorf("new run id: %w", err)
		}
		sum.RunID = runID
	}
	start := d.deps.Clock.Now()
	defer func() { sum.Duration = d.deps.Clock.Now().Sub(start) }()

	logger := d.logger.With(zap.String("source", sum.SourceID), zap.String("run_id", sum.RunID))
	attempted := make(map[int64]struct{})

	for batchNo := 0; limit <= 0 || sum.Processed < limit; batchNo++ {
		size := d.cfg.BatchSize
		if limit > 0 && limit-sum.Processed < size {
			size = limit - sum.Processed
		}
		if batchNo > 0 && d.cfg.BatchPause > 0 {
			if err := d.deps.Sleep(ctx, d.cfg.BatchPause); err != nil {
				return sum, err
			}
		}
		items, err := d.deps.Frontier.DequeueBatch(ctx, sum.SourceID, size)
		if err != nil {
			return sum, fmt.Errorf("dequeue batch: %w", err)
		}
		fresh := 0
		for _, item := range items {
			if _, dup := attempted[item.ID]; dup {
				continue
			}
			attempted[item.ID] = struct{}{}
			fresh++
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			if err := d.processItem(ctx, src, item, &sum, logger); err != nil {
				return sum, err
			}
		}
		if fresh == 0 {
			break
		}
	}

	logger.Info("scrape finished",
		zap.Int("processed", sum.Processed),
		zap.Int("scraped", sum.Scraped),
		zap.Int("duplicates", sum.Duplicates),
		zap.Int("failed", sum.Failed),
		zap.Int("filtered_out", sum.FilteredOut),
		zap.Int("needs_review", sum.NeedsReview),
	)
	return sum, nil
}

// processItem walks one frontier row through the scrape lifecycle. The returned
// error is fatal for the run; item failures are recorded on the row instead.
func (d *Driver) processItem(
	ctx context.Context,
	src Source,
	item story.DiscoveredURL,
	sum *Summary,
	logger *zap.Logger,
) error {
	logger = logger.With(zap.Int64("frontier_id", item.ID), zap.String("url", item.URL))
	ctx, span := telemetry.Tracer().Start(ctx, "scrape.item")
	span.SetAttributes(
		attribute.String("source", sum.SourceID),
		attribute.Int64("frontier_id", item.ID),
		attribute.String("url", item.URL),
	)
	defer span.End()

	if err := d.deps.Frontier.MarkAttempt(ctx, item.ID, story.StatusScraping, ""); err != nil {
		if errors.Is(err, story.ErrInvalidTransition) || errors.Is(err, story.ErrNotFound) {
			logger.Warn("item already claimed", zap.Error(err))
			return nil
		}
		return fmt.Errorf("claim frontier item %d: %w", item.ID, err)
	}
	sum.Processed++
	metrics.ObserveTransition(sum.SourceID, string(story.StatusScraping))

	outcome, reason := d.scrapeItem(ctx, src, item, sum, logger)
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	if outcome == OutcomeFailed {
		span.SetStatus(codes.Error, reason)
	}
	d.settle(ctx, item, outcome, reason, sum, logger)
	return nil
}

// scrapeItem performs fetch → eligibility → dedupe → classify → persist and
// reports the terminal outcome for the item.
func (d *Driver) scrapeItem(
	ctx context.Context,
	src Source,
	item story.DiscoveredURL,
	sum *Summary,
	logger *zap.Logger,
) (Outcome, string) {
	fetchCtx, cancel := context.WithTimeout(ctx, d.cfg.FetchTimeout)
	page, err := src.FetchStory(fetchCtx, item.URL)
	cancel()
	if err != nil {
		kind := story.KindOf(err)
		logger.Warn("fetch failed", zap.String("kind", string(kind)), zap.Error(err))
		var fetchErr *story.FetchError
		if errors.As(err, &fetchErr) && fetchErr.Gone() {
			return OutcomeFilteredOut, err.Error()
		}
		return OutcomeFailed, err.Error()
	}

	if reason := d.cfg.Eligibility.Check(item.URL, page.Text, page.Metadata.WordCount); reason != "" {
		logger.Info("page not eligible", zap.String("reason", reason))
		return OutcomeFilteredOut, reason
	}

	hash, err := d.deps.Hasher.Hash([]byte(page.Text))
	if err != nil {
		return OutcomeFailed, fmt.Sprintf("hash content: %v", err)
	}
	exists, err := d.deps.Stories.Exists(ctx, item.URL, hash)
	if err != nil {
		logger.Warn("story lookup failed", zap.Error(err))
		return OutcomeFailed, fmt.Sprintf("story lookup: %v", err)
	}
	if exists {
		logger.Info("story already stored", zap.String("content_hash", hash))
		return OutcomeDuplicate, ""
	}

	title := firstNonEmpty(page.Metadata.Title, item.InferredTitle)
	verdict := d.deps.Classifier.Classify(classify.Input{Title: title, URL: item.URL, Body: page.Text})
	metrics.ObserveClassification(string(verdict.Method), string(verdict.Category))

	extraction, verdict, needsReview := d.resolve(ctx, item, page, title, verdict, sum, logger)

	now := d.deps.Clock.Now()
	st := story.Story{
		SourceID:     sum.SourceID,
		CustomerName: customerName(extraction, item),
		Title:        title,
		URL:          item.URL,
		ContentHash:  hash,
		RawContent: story.RawContent{
			HTML:     page.HTML,
			Text:     page.Text,
			Metadata: page.Metadata,
			ScrapingInfo: story.ScrapingInfo{
				ScrapedAt:  now,
				FinalURL:   page.URL,
				StatusCode: page.StatusCode,
				Fetcher:    page.Fetcher,
				RunID:      sum.RunID,
			},
		},
		Extraction:     extraction,
		IsGenAI:        verdict.Category.IsGenAI(),
		Classification: verdict,
		NeedsReview:    needsReview,
		ScrapedAt:      now,
		UpdatedAt:      now,
		PublishDate:    page.Metadata.PublishDate,
	}
	if st.PublishDate == nil {
		st.PublishDate = item.InferredPublishDate
	}
	st.RawContent.ScrapingInfo.ArchiveURI = d.archive(ctx, st, logger)

	id, err := d.deps.Stories.Insert(ctx, st)
	if errors.Is(err, story.ErrDuplicate) {
		logger.Info("story inserted concurrently", zap.String("content_hash", hash))
		return OutcomeDuplicate, ""
	}
	if err != nil {
		logger.Warn("story insert failed", zap.Error(err))
		return OutcomeFailed, fmt.Sprintf("insert story: %v", err)
	}
	st.ID = id

	sum.Categories[verdict.Category]++
	if needsReview {
		sum.NeedsReview++
	}
	logger.Info("story stored",
		zap.Int64("story_id", id),
		zap.String("method", string(verdict.Method)),
		zap.String("category", string(verdict.Category)),
		zap.Float64("confidence", verdict.Confidence),
	)
	d.notify(ctx, st, logger)
	return OutcomeScraped, ""
}

// resolve applies the extraction service to an escalated verdict, or to every
// verdict when ExtractAlways is set. Rule verdicts that did not escalate stay authoritative.
func (d *Driver) resolve(
	ctx context.Context,
	item story.DiscoveredURL,
	page story.Page,
	title string,
	verdict story.Verdict,
	sum *Summary,
	logger *zap.Logger,
) (*story.Extraction, story.Verdict, bool) {
	escalate := verdict.RequiresEscalation
	if !escalate && !d.cfg.ExtractAlways {
		return nil, verdict, verdict.Category == story.CategoryUnclear
	}
	if d.deps.Extractor == nil {
		if escalate {
			metrics.ObserveExtraction("unavailable")
		}
		return nil, verdict, verdict.Category == story.CategoryUnclear
	}
	if escalate {
		sum.Escalated++
	}

	extractCtx, cancel := context.WithTimeout(ctx, d.cfg.ExtractTimeout)
	ext, err := d.deps.Extractor.Extract(extractCtx, story.ExtractionRequest{
		URL:          item.URL,
		Title:        title,
		CustomerName: item.InferredCustomerName,
		Text:         page.Text,
	})
	cancel()
	if err != nil {
		sum.ExtractionFailures++
		metrics.ObserveExtraction("error")
		logger.Warn("extraction failed", zap.String("kind", string(story.KindExtraction)), zap.Error(err))
		if escalate {
			verdict.Category = story.CategoryUnclear
			verdict.Reasoning = "extraction failed: " + err.Error()
		}
		return nil, verdict, true
	}
	metrics.ObserveExtraction("ok")

	if !escalate {
		return &ext, verdict, verdict.Category == story.CategoryUnclear
	}
	resolved := classify.AdoptExtraction(verdict, ext)
	metrics.ObserveClassification(string(resolved.Method), string(resolved.Category))
	return &ext, resolved, resolved.Category == story.CategoryUnclear
}

// settle records the terminal status for an item. A failed write leaves the item
// in scraping, where an operator reset can recover it.
func (d *Driver) settle(
	ctx context.Context,
	item story.DiscoveredURL,
	outcome Outcome,
	reason string,
	sum *Summary,
	logger *zap.Logger,
) {
	sum.record(outcome)
	status := outcome.Status()
	if err := d.deps.Frontier.MarkAttempt(ctx, item.ID, status, reason); err != nil {
		sum.Stuck++
		logger.Warn("mark attempt failed", zap.String("status", string(status)), zap.Error(err))
		return
	}
	metrics.ObserveTransition(sum.SourceID, string(status))
}

func (d *Driver) archive(ctx context.Context, st story.Story, logger *zap.Logger) string {
	if d.deps.Archive == nil {
		return ""
	}
	path := archivePath(d.cfg.ArchivePrefix, st.SourceID, st.ContentHash)
	uri, err := d.deps.Archive.PutObject(ctx, path, d.cfg.ContentType, bytes.NewReader([]byte(st.RawContent.HTML)))
	if err != nil {
		metrics.ObserveSideEffectFailure("archive")
		logger.Warn("archive raw html failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	return uri
}

func (d *Driver) notify(ctx context.Context, st story.Story, logger *zap.Logger) {
	if d.deps.Publisher == nil || d.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"event":       EventStoryCreated,
		"story_id":    st.ID,
		"source_id":   st.SourceID,
		"url":         st.URL,
		"category":    st.Classification.Category,
		"confidence":  st.Classification.Confidence,
		"method":      st.Classification.Method,
		"archive_uri": st.RawContent.ScrapingInfo.ArchiveURI,
		"timestamp":   st.ScrapedAt.Format(time.RFC3339),
	}
	if _, err := d.deps.Publisher.Publish(ctx, d.cfg.Topic, payload); err != nil {
		metrics.ObserveSideEffectFailure("notify")
		logger.Warn("publish story event failed", zap.Error(err))
	}
}

func archivePath(prefix, sourceID, hash string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", sourceID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, sourceID, hash)
}

func customerName(ext *story.Extraction, item story.DiscoveredURL) string {
	if ext != nil && len(ext.Fields) > 0 {
		if name := strings.TrimSpace(gjson.GetBytes(ext.Fields, "customer_name").String()); name != "" {
			return name
		}
	}
	if item.InferredCustomerName != "" {
		return item.InferredCustomerName
	}
	return frontier.CustomerNameFromSlug(frontier.Slug(item.URL), 3)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
