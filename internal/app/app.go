// Package app initializes and holds the long-lived pipeline services. Commands build
// one App per invocation and drive discovery, scraping and reclassification through it.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/classify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/clock/system"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/config"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/content"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/discovery"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/extract"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/extract/anthropic"
	collyfetcher "github.com/sandeepAGI/ai-story-repo-sub000/internal/fetcher/colly"
	headlessfetcher "github.com/sandeepAGI/ai-story-repo-sub000/internal/fetcher/headless"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/headless/detector"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/hash/sha256"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/id/uuid"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/metrics"
	memorynotify "github.com/sandeepAGI/ai-story-repo-sub000/internal/notify/memory"
	pubsubnotify "github.com/sandeepAGI/ai-story-repo-sub000/internal/notify/pubsub"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/policy/ratelimit"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/reclassify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/scrape"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/storage/gcs"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/storage/local"
	memorystorage "github.com/sandeepAGI/ai-story-repo-sub000/internal/storage/memory"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/storage/postgres"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/telemetry"
)

// ErrNoDatabase is returned by operations that need Postgres when the App runs on injected stores.
var ErrNoDatabase = errors.New("no database configured")

// FrontierStore is the full frontier surface used by commands.
type FrontierStore interface {
	story.FrontierStore
	story.FrontierAdmin
}

// StoryStore is the full story surface used by commands.
type StoryStore interface {
	story.StoryStore
	story.ReclassifyStore
	story.ReviewQueue
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores groups the persistence backends.
type Stores struct {
	Frontier FrontierStore
	Stories  StoryStore
	Audit    story.AuditLog
	Database Pinger
}

// Option customizes New.
type Option func(*App)

// WithStores replaces the Postgres stores, e.g. with in-memory ones.
func WithStores(s Stores) Option {
	return func(a *App) { a.stores = &s }
}

// WithSources replaces the built-in source registry.
func WithSources(defs ...sources.Definition) Option {
	return func(a *App) {
		a.sources = make(map[string]sources.Definition, len(defs))
		for _, def := range defs {
			a.sources[def.ID] = def
		}
	}
}

const anthropicEndpoint = "https://api.anthropic.com"

// App holds the shared services for one command invocation.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	stores *Stores
	pool   postgres.Pool

	sources  map[string]sources.Definition
	pages    *collyfetcher.Fetcher
	browser  *headlessfetcher.Fetcher
	promoter *detector.Heuristic
	limiter  *ratelimit.Limiter

	archive   story.BlobStore
	publisher story.Publisher
	extractor story.Extractor
	rules     *classify.RuleSet

	hasher story.Hasher
	clock  story.Clock
	ids    story.IDGenerator

	closers []func()
}

// New builds every service the configuration asks for. Postgres is required
// unless stores are injected; a browser that fails to start only disables
// rendered listings and page promotion.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		hasher: sha256.New(classify.NormalizeText),
		clock:  system.New(),
		ids:    uuid.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sources == nil {
		WithSources(sources.Builtin()...)(a)
	}

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	if a.stores == nil {
		if err := a.connectPostgres(ctx); err != nil {
			return nil, err
		}
	}

	rules, err := classify.LoadRuleSet(cfg.Classification.RuleSet)
	if err != nil {
		return nil, fmt.Errorf("load rule set: %w", err)
	}
	a.rules = rules

	a.limiter = ratelimit.New(ratelimit.Config{
		Delay:        cfg.Politeness.Delay,
		DefaultRPS:   cfg.Politeness.RPS,
		DefaultBurst: cfg.Politeness.Burst,
	})
	a.pages = collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Fetch.UserAgent,
		RespectRobots: cfg.Fetch.RespectRobots,
		Timeout:       cfg.Fetch.Timeout,
	})
	if cfg.Fetch.Headless.Enabled {
		browser, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Fetch.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.Fetch.Headless.NavigationTimeout,
			SettleDelay:       cfg.Fetch.Headless.SettleDelay,
		})
		if err != nil {
			logger.Warn("headless fetcher init failed; rendered fetches fall back to static fetch", zap.Error(err))
		} else {
			a.browser = browser
			a.promoter = detector.NewHeuristic(cfg.Fetch.Headless.PromoteBelowWords)
			a.closers = append(a.closers, browser.Close)
		}
	}

	if a.archive, err = a.newArchive(ctx); err != nil {
		return nil, err
	}
	if a.publisher, err = a.newPublisher(ctx); err != nil {
		return nil, err
	}
	if cfg.ExtractionReady() {
		client, err := anthropic.New(anthropic.Config{
			APIKey:     cfg.Extraction.APIKey,
			Model:      cfg.Extraction.Model,
			MaxTokens:  cfg.Extraction.MaxTokens,
			Timeout:    cfg.Extraction.Timeout,
			MaxChars:   cfg.Extraction.MaxChars,
			BaseURL:    cfg.Extraction.BaseURL,
			MaxRetries: cfg.Extraction.MaxRetries,
		}, logger.Named("extract"))
		if err != nil {
			return nil, fmt.Errorf("init extractor: %w", err)
		}
		endpoint := cfg.Extraction.BaseURL
		if endpoint == "" {
			endpoint = anthropicEndpoint
		}
		a.extractor = extract.NewPaced(client, ratelimit.New(ratelimit.Config{Delay: cfg.Extraction.Delay}), endpoint)
	} else {
		logger.Info("extraction disabled; ambiguous stories are stored as Unclear and flagged for review")
	}

	tp, err := telemetry.InitTracerProvider(ctx, cfg.Metrics.Job)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() { _ = tp.Shutdown(context.Background()) })

	metrics.Init()
	ok = true
	return a, nil
}

func (a *App) connectPostgres(ctx context.Context) error {
	if err := a.cfg.RequireDatabase(); err != nil {
		return err
	}
	pool, err := postgres.Connect(ctx, postgres.PoolConfig{
		DSN:             a.cfg.Database.DSN,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	frontier, err := postgres.NewFrontierStore(pool)
	if err != nil {
		return fmt.Errorf("init frontier store: %w", err)
	}
	stories, err := postgres.NewStoryStore(pool)
	if err != nil {
		return fmt.Errorf("init story store: %w", err)
	}
	audit, err := postgres.NewAuditStore(pool)
	if err != nil {
		return fmt.Errorf("init audit store: %w", err)
	}
	a.stores = &Stores{Frontier: frontier, Stories: stories, Audit: audit, Database: pool}
	return nil
}

func (a *App) newArchive(ctx context.Context) (story.BlobStore, error) {
	switch a.cfg.Archive.Kind {
	case config.BackendMemory:
		return memorystorage.NewBlobStore(), nil
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: a.cfg.Archive.LocalDir})
		if err != nil {
			return nil, fmt.Errorf("init local archive: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Archive.Bucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return store, nil
	default:
		return nil, nil
	}
}

func (a *App) newPublisher(ctx context.Context) (story.Publisher, error) {
	switch a.cfg.Notify.Kind {
	case config.BackendMemory:
		return memorynotify.New(), nil
	case config.BackendPubSub:
		client, err := pubsub.NewClient(ctx, a.cfg.Notify.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("init pubsub client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		pub, err := pubsubnotify.New(client, a.cfg.Notify.Topic)
		if err != nil {
			return nil, fmt.Errorf("init pubsub publisher: %w", err)
		}
		// Topics must stop before the client closes.
		a.closers = append(a.closers, pub.Close)
		return pub, nil
	default:
		return nil, nil
	}
}

// Close releases every service in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Stores returns the persistence backends.
func (a *App) Stores() Stores { return *a.stores }

// Sources returns the registry ordered as configured.
func (a *App) Sources() []sources.Definition {
	out := make([]sources.Definition, 0, len(a.sources))
	for _, id := range a.sourceIDs() {
		out = append(out, a.sources[id])
	}
	return out
}

func (a *App) sourceIDs() []string {
	ids := make([]string, 0, len(a.sources))
	for id := range a.sources {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Provider binds a source definition to the shared fetchers.
func (a *App) Provider(sourceID string) (*sources.Provider, error) {
	def, ok := a.sources[strings.ToLower(strings.TrimSpace(sourceID))]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (have %s)", sourceID, strings.Join(a.sourceIDs(), ", "))
	}
	deps := sources.Deps{
		Pages:         a.pages,
		StaticListing: a.pages,
		Limiter:       a.limiter,
		Clock:         a.clock,
	}
	if a.browser != nil {
		deps.RenderedListing = a.browser
		deps.RenderedPages = a.browser
		deps.Promoter = a.promoter
	}
	return sources.NewProvider(def, deps), nil
}

// Discover runs one discovery pass for sourceID.
func (a *App) Discover(ctx context.Context, sourceID string) (discovery.Result, error) {
	src, err := a.Provider(sourceID)
	if err != nil {
		return discovery.Result{}, err
	}
	driver := discovery.New(a.stores.Frontier, a.ids, a.clock, discovery.Config{
		MaxIdleRounds:      a.cfg.Discovery.MaxIdleRounds,
		MaxRounds:          a.cfg.Discovery.MaxRounds,
		MaxAdvanceAttempts: a.cfg.Discovery.MaxAdvanceAttempts,
		SlugWords:          a.cfg.Discovery.SlugWords,
	}, a.logger.Named("discovery"))
	res, err := driver.Run(ctx, src)
	if err != nil {
		return res, fmt.Errorf("discover %s: %w", src.ID(), err)
	}
	return res, nil
}

// Scrape processes up to limit pending items of sourceID; zero means all.
func (a *App) Scrape(ctx context.Context, sourceID string, limit int) (scrape.Summary, error) {
	src, err := a.Provider(sourceID)
	if err != nil {
		return scrape.Summary{}, err
	}
	driver := scrape.New(scrape.Deps{
		Frontier:   a.stores.Frontier,
		Stories:    a.stores.Stories,
		Classifier: classify.New(a.rules),
		Extractor:  a.extractor,
		Archive:    a.archive,
		Publisher:  a.publisher,
		Hasher:     a.hasher,
		Clock:      a.clock,
		IDs:        a.ids,
	}, scrape.Config{
		BatchSize:      a.cfg.Politeness.BatchSize,
		BatchPause:     a.cfg.Politeness.BatchPause,
		FetchTimeout:   a.cfg.Fetch.Timeout,
		ExtractTimeout: a.cfg.Scrape.ExtractTimeout,
		Eligibility: content.Eligibility{
			MinWords:              a.cfg.Scrape.MinWords,
			MinCustomerIndicators: a.cfg.Scrape.MinCustomerIndicators,
		},
		ExtractAlways: a.cfg.Scrape.ExtractAlways,
		ArchivePrefix: a.cfg.Archive.Prefix,
		ContentType:   a.cfg.Archive.ContentType,
		Topic:         a.cfg.Notify.Topic,
	}, a.logger.Named("scrape"))
	sum, err := driver.Run(ctx, src, limit)
	if err != nil {
		return sum, fmt.Errorf("scrape %s: %w", src.ID(), err)
	}
	return sum, nil
}

// Reclassify runs a bulk reclassification pass with the named rule set; an
// empty version uses the configured one.
func (a *App) Reclassify(ctx context.Context, ruleSet string, opts reclassify.Options) (reclassify.Report, error) {
	rules := a.rules
	if ruleSet != "" && ruleSet != rules.Version() {
		loaded, err := classify.LoadRuleSet(ruleSet)
		if err != nil {
			return reclassify.Report{}, fmt.Errorf("load rule set: %w", err)
		}
		rules = loaded
	}
	if opts.Escalate && a.extractor == nil {
		a.logger.Warn("escalation requested but extraction is not configured; rule verdicts are kept")
	}
	svc := reclassify.New(reclassify.Deps{
		Stories:        a.stores.Stories,
		Audit:          a.stores.Audit,
		Classifier:     classify.New(rules),
		Extractor:      a.extractor,
		Clock:          a.clock,
		IDs:            a.ids,
		ExtractTimeout: a.cfg.Scrape.ExtractTimeout,
	}, a.logger.Named("reclassify"))
	return svc.Run(ctx, opts)
}

// Migrate applies the Postgres schema.
func (a *App) Migrate(ctx context.Context) error {
	if a.pool == nil {
		return ErrNoDatabase
	}
	if err := postgres.Migrate(ctx, a.pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RunJob executes one scheduled job. A pipeline job scrapes even when discovery
// fails, since earlier runs may have left pending items.
func (a *App) RunJob(ctx context.Context, job config.JobConfig) error {
	logger := a.logger.With(zap.String("job", job.Name), zap.String("source", job.Source), zap.String("action", job.Action))
	var errs []error
	switch job.Action {
	case config.ActionDiscover:
		res, err := a.Discover(ctx, job.Source)
		logger.Info("discovery finished", zap.Int("new", res.New), zap.String("stop_reason", res.StopReason))
		errs = append(errs, err)
	case config.ActionScrape:
		sum, err := a.Scrape(ctx, job.Source, job.Limit)
		logger.Info("scrape finished", zap.Int("processed", sum.Processed), zap.Int("scraped", sum.Scraped))
		errs = append(errs, err)
	case config.ActionPipeline:
		res, err := a.Discover(ctx, job.Source)
		logger.Info("discovery finished", zap.Int("new", res.New), zap.String("stop_reason", res.StopReason))
		errs = append(errs, err)
		if ctx.Err() == nil {
			sum, err := a.Scrape(ctx, job.Source, job.Limit)
			logger.Info("scrape finished", zap.Int("processed", sum.Processed), zap.Int("scraped", sum.Scraped))
			errs = append(errs, err)
		}
	default:
		return fmt.Errorf("unknown job action %q", job.Action)
	}
	a.PushMetrics(ctx, map[string]string{"source": job.Source, "action": job.Action})
	return errors.Join(errs...)
}

// PushMetrics sends the registry to the configured pushgateway. Failures are logged only.
func (a *App) PushMetrics(ctx context.Context, grouping map[string]string) {
	if err := metrics.Push(ctx, a.cfg.Metrics.PushURL, a.cfg.Metrics.Job, grouping); err != nil {
		a.logger.Warn("metrics push failed", zap.Error(err))
	}
}
