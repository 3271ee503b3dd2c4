// Package discovery turns a source's listing UI into frontier rows.
//
// A run repeatedly snapshots the listing, enqueues every valid story link it has
// not seen yet, and asks the listing to reveal more content. It stops on the
// first of three caps: consecutive idle rounds, total rounds, or advance attempts.
package discovery

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/frontier"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/metrics"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/telemetry"
)

// Default caps.
const (
	DefaultMaxIdleRounds      = 8
	DefaultMaxRounds          = 50
	DefaultMaxAdvanceAttempts = 20
	defaultSlugWords          = 3
)

// Stop reasons reported in Result.StopReason.
const (
	StopIdle     = "idle_rounds"
	StopRounds   = "max_rounds"
	StopAdvances = "max_advances"
	StopCanceled = "canceled"

	// StopSnapshotFailed ends a run whose listing could not be read after the first round.
	StopSnapshotFailed = "snapshot_failed"
)

// Source is the listing side of a story source.
type Source interface {
	ID() string
	OpenListing(ctx context.Context) (story.ListingPage, error)
	// Links returns the raw candidate links in a listing snapshot.
	Links(html, pageURL string) ([]story.Candidate, error)
	ValidStoryURL(rawURL string) bool
}

// Config holds the discovery caps.
type Config struct {
	MaxIdleRounds      int
	MaxRounds          int
	MaxAdvanceAttempts int
	// SlugWords caps the words used for a customer name guessed from the URL slug.
	SlugWords int
}

func (c Config) withDefaults() Config {
	if c.MaxIdleRounds <= 0 {
		c.MaxIdleRounds = DefaultMaxIdleRounds
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.MaxAdvanceAttempts <= 0 {
		c.MaxAdvanceAttempts = DefaultMaxAdvanceAttempts
	}
	if c.SlugWords <= 0 {
		c.SlugWords = defaultSlugWords
	}
	return c
}

// Result summarizes one discovery run.
type Result struct {
	RunID           string        `json:"run_id"`
	SourceID        string        `json:"source_id"`
	Rounds          int           `json:"rounds"`
	AdvanceAttempts int           `json:"advance_attempts"`
	Candidates      int           `json:"candidates"`
	New             int           `json:"new"`
	Existing        int           `json:"existing"`
	Rejected        int           `json:"rejected"`
	Failed          int           `json:"failed"`
	StopReason      string        `json:"stop_reason"`
	Duration        time.Duration `json:"duration"`
}

// Driver runs discovery for one source at a time.
type Driver struct {
	store  story.FrontierStore
	ids    story.IDGenerator
	clock  story.Clock
	cfg    Config
	logger *zap.Logger
}

// New constructs a Driver.
func New(store story.FrontierStore, ids story.IDGenerator, clock story.Clock, cfg Config, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		store:  store,
		ids:    ids,
		clock:  clock,
		cfg:    cfg.withDefaults(),
		logger: logger,
	}
}

// Run discovers candidates for src. Per-candidate failures are counted and logged;
// only a listing that cannot be opened or read ends the run with an error.
func (d *Driver) Run(ctx context.Context, src Source) (res Result, err error) {
	res = Result{SourceID: src.ID()}
	ctx, span := telemetry.Tracer().Start(ctx, "discovery.run")
	span.SetAttributes(attribute.String("source", res.SourceID))
	defer func() {
		span.SetAttributes(attribute.Int("candidates", res.Candidates), attribute.Int("new", res.New))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "discovery failed")
		}
		span.End()
	}()
	if d.ids != nil {
		runID, err := d.ids.NewID()
		if err != nil {
			return res, fmt.Errorf("new run id: %w", err)
		}
		res.RunID = runID
	}
	start := d.clock.Now()
	defer func() { res.Duration = d.clock.Now().Sub(start) }()

	logger := d.logger.With(zap.String("source", res.SourceID), zap.String("run_id", res.RunID))

	page, err := src.OpenListing(ctx)
	if err != nil {
		return res, fmt.Errorf("open listing: %w", err)
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			logger.Warn("close listing failed", zap.Error(closeErr))
		}
	}()

	seen := make(map[string]struct{})
	idle := 0
	for {
		if ctx.Err() != nil {
			res.StopReason = StopCanceled
			return res, ctx.Err()
		}
		res.Rounds++

		html, pageURL, err := page.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.StopReason = StopCanceled
				return res, ctx.Err()
			}
			if res.Rounds == 1 {
				return res, fmt.Errorf("snapshot listing: %w", err)
			}
			// Candidates from earlier rounds are already enqueued.
			logger.Warn("listing snapshot failed", zap.Int("round", res.Rounds), zap.Error(err))
			res.Rounds--
			res.StopReason = StopSnapshotFailed
			break
		}
		fresh := d.collect(ctx, src, html, pageURL, seen, &res, logger)
		if fresh == 0 {
			idle++
		} else {
			idle = 0
		}
		logger.Debug("discovery round",
			zap.Int("round", res.Rounds),
			zap.Int("new_candidates", fresh),
			zap.Int("idle_rounds", idle),
		)

		switch {
		case idle >= d.cfg.MaxIdleRounds:
			res.StopReason = StopIdle
		case res.Rounds >= d.cfg.MaxRounds:
			res.StopReason = StopRounds
		case res.AdvanceAttempts >= d.cfg.MaxAdvanceAttempts:
			res.StopReason = StopAdvances
		}
		if res.StopReason != "" {
			break
		}

		res.AdvanceAttempts++
		grew, err := page.Advance(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.StopReason = StopCanceled
				return res, ctx.Err()
			}
			logger.Warn("listing advance failed", zap.Int("attempt", res.AdvanceAttempts), zap.Error(err))
			continue
		}
		if !grew {
			logger.Debug("listing advance revealed nothing", zap.Int("attempt", res.AdvanceAttempts))
		}
	}

	logger.Info("discovery finished",
		zap.String("stop_reason", res.StopReason),
		zap.Int("rounds", res.Rounds),
		zap.Int("candidates", res.Candidates),
		zap.Int("new", res.New),
		zap.Int("existing", res.Existing),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}

// collect enqueues the unseen valid candidates in one snapshot and returns how many there were.
func (d *Driver) collect(
	ctx context.Context,
	src Source,
	html, pageURL string,
	seen map[string]struct{},
	res *Result,
	logger *zap.Logger,
) int {
	links, err := src.Links(html, pageURL)
	if err != nil {
		logger.Warn("extract listing links failed", zap.String("url", pageURL), zap.Error(err))
		return 0
	}

	fresh := 0
	for _, c := range links {
		normalized, err := frontier.NormalizeURL(pageURL, c.URL)
		if err != nil || !src.ValidStoryURL(normalized) {
			if _, dup := seen["rejected:"+c.URL]; !dup {
				seen["rejected:"+c.URL] = struct{}{}
				res.Rejected++
				metrics.ObserveCandidate(res.SourceID, "rejected")
			}
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		fresh++
		res.Candidates++

		c.URL = normalized
		if c.CustomerName == "" {
			c.CustomerName = frontier.CustomerNameFromSlug(frontier.Slug(normalized), d.cfg.SlugWords)
		}
		created, err := d.store.Enqueue(ctx, res.SourceID, c)
		switch {
		case err != nil:
			res.Failed++
			metrics.ObserveCandidate(res.SourceID, "error")
			logger.Warn("enqueue candidate failed", zap.String("url", normalized), zap.Error(err))
		case created:
			res.New++
			metrics.ObserveCandidate(res.SourceID, "new")
			metrics.ObserveTransition(res.SourceID, string(story.StatusPending))
			logger.Debug("candidate enqueued", zap.String("url", normalized))
		default:
			res.Existing++
			metrics.ObserveCandidate(res.SourceID, "existing")
		}
	}
	return fresh
}
