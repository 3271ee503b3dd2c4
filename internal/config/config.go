// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/classify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
)

// EnvPrefix namespaces every environment override, e.g. STORIES_DATABASE_DSN.
const EnvPrefix = "STORIES"

// Archive and notify backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendPubSub = "pubsub"
)

// Scheduled job actions.
const (
	ActionDiscover = "discover"
	ActionScrape   = "scrape"
	ActionPipeline = "pipeline"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Logging        LoggingConfig        `mapstructure:"logging"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Fetch          FetchConfig          `mapstructure:"fetch"`
	Politeness     PolitenessConfig     `mapstructure:"politeness"`
	Discovery      DiscoveryConfig      `mapstructure:"discovery"`
	Scrape         ScrapeConfig         `mapstructure:"scrape"`
	Classification ClassificationConfig `mapstructure:"classification"`
	Extraction     ExtractionConfig     `mapstructure:"extraction"`
	Archive        ArchiveConfig        `mapstructure:"archive"`
	Notify         NotifyConfig         `mapstructure:"notify"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	Server         ServerConfig         `mapstructure:"server"`
	Schedule       ScheduleConfig       `mapstructure:"schedule"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// DatabaseConfig controls access to Postgres.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// FetchConfig configures the static and rendered fetchers.
type FetchConfig struct {
	UserAgent     string         `mapstructure:"user_agent"`
	Timeout       time.Duration  `mapstructure:"timeout"`
	RespectRobots bool           `mapstructure:"respect_robots"`
	Headless      HeadlessConfig `mapstructure:"headless"`
}

// HeadlessConfig configures the Chrome-backed fetcher.
type HeadlessConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	MaxParallel       int           `mapstructure:"max_parallel"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	// PromoteBelowWords re-fetches story pages through the browser when the
	// static fetch yields fewer visible words and the page looks client-rendered.
	PromoteBelowWords int `mapstructure:"promote_below_words"`
}

// PolitenessConfig bounds how hard a source site is hit.
type PolitenessConfig struct {
	// Delay is the minimum spacing between requests to one host.
	Delay      time.Duration `mapstructure:"delay"`
	BatchSize  int           `mapstructure:"batch_size"`
	BatchPause time.Duration `mapstructure:"batch_pause"`
	RPS        float64       `mapstructure:"rps"`
	Burst      int           `mapstructure:"burst"`
}

// DiscoveryConfig holds the discovery caps.
type DiscoveryConfig struct {
	MaxIdleRounds      int `mapstructure:"max_idle_rounds"`
	MaxRounds          int `mapstructure:"max_rounds"`
	MaxAdvanceAttempts int `mapstructure:"max_advance_attempts"`
	SlugWords          int `mapstructure:"slug_words"`
}

// ScrapeConfig configures scrape runs.
type ScrapeConfig struct {
	Limit                 int           `mapstructure:"limit"`
	MinWords              int           `mapstructure:"min_words"`
	MinCustomerIndicators int           `mapstructure:"min_customer_indicators"`
	ExtractAlways         bool          `mapstructure:"extract_always"`
	ExtractTimeout        time.Duration `mapstructure:"extract_timeout"`
}

// ClassificationConfig selects the rule set.
type ClassificationConfig struct {
	RuleSet string `mapstructure:"rule_set"`
}

// ExtractionConfig configures the extraction service client.
type ExtractionConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	MaxTokens  int64         `mapstructure:"max_tokens"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxChars   int           `mapstructure:"max_chars"`
	MaxRetries int           `mapstructure:"max_retries"`
	BaseURL    string        `mapstructure:"base_url"`
	// Delay is the minimum spacing between extraction calls.
	Delay time.Duration `mapstructure:"delay"`
}

// ArchiveConfig selects where raw HTML is archived.
type ArchiveConfig struct {
	Kind        string `mapstructure:"kind"`
	Prefix      string `mapstructure:"prefix"`
	LocalDir    string `mapstructure:"local_dir"`
	Bucket      string `mapstructure:"bucket"`
	ContentType string `mapstructure:"content_type"`
}

// NotifyConfig selects where story events are published.
type NotifyConfig struct {
	Kind      string `mapstructure:"kind"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// MetricsConfig configures the Prometheus pushgateway used by batch commands.
type MetricsConfig struct {
	PushURL string `mapstructure:"push_url"`
	Job     string `mapstructure:"job"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
}

// ScheduleConfig lists cron jobs for the schedule command.
type ScheduleConfig struct {
	Jobs []JobConfig `mapstructure:"jobs"`
}

// JobConfig is one scheduled run.
type JobConfig struct {
	Name   string `mapstructure:"name"`
	Spec   string `mapstructure:"spec"`
	Source string `mapstructure:"source"`
	Action string `mapstructure:"action"`
	Limit  int    `mapstructure:"limit"`
}

// Load builds a Config from .env, the optional file at path, and the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindAliases(v); err != nil {
		return Config{}, err
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindAliases lets the conventional unprefixed variables fill their keys.
func bindAliases(v *viper.Viper) error {
	aliases := map[string]string{
		"database.dsn":       "DATABASE_URL",
		"extraction.api_key": "ANTHROPIC_API_KEY",
	}
	for key, env := range aliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, env); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("fetch.user_agent", "Mozilla/5.0 (compatible; ai-story-repo/1.0)")
	v.SetDefault("fetch.timeout", 45*time.Second)
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.headless.enabled", true)
	v.SetDefault("fetch.headless.max_parallel", 1)
	v.SetDefault("fetch.headless.navigation_timeout", 45*time.Second)
	v.SetDefault("fetch.headless.settle_delay", 2*time.Second)
	v.SetDefault("fetch.headless.promote_below_words", 80)
	v.SetDefault("politeness.delay", 2*time.Second)
	v.SetDefault("politeness.batch_size", 10)
	v.SetDefault("politeness.batch_pause", 5*time.Second)
	v.SetDefault("politeness.rps", 0.5)
	v.SetDefault("politeness.burst", 1)
	v.SetDefault("discovery.max_idle_rounds", 8)
	v.SetDefault("discovery.max_rounds", 50)
	v.SetDefault("discovery.max_advance_attempts", 20)
	v.SetDefault("discovery.slug_words", 3)
	v.SetDefault("scrape.limit", 0)
	v.SetDefault("scrape.min_words", 100)
	v.SetDefault("scrape.min_customer_indicators", 3)
	v.SetDefault("scrape.extract_always", false)
	v.SetDefault("scrape.extract_timeout", 90*time.Second)
	v.SetDefault("classification.rule_set", classify.DefaultRuleSetVersion)
	v.SetDefault("extraction.enabled", true)
	v.SetDefault("extraction.model", "claude-3-5-sonnet-20241022")
	v.SetDefault("extraction.max_tokens", 2000)
	v.SetDefault("extraction.timeout", 60*time.Second)
	v.SetDefault("extraction.max_chars", 32000)
	v.SetDefault("extraction.max_retries", 3)
	v.SetDefault("extraction.delay", time.Second)
	v.SetDefault("archive.kind", BackendNone)
	v.SetDefault("archive.prefix", "raw")
	v.SetDefault("archive.local_dir", "data/archive")
	v.SetDefault("archive.content_type", "text/html; charset=utf-8")
	v.SetDefault("notify.kind", BackendNone)
	v.SetDefault("notify.topic", "story-events")
	v.SetDefault("metrics.job", "ai-story-repo")
	v.SetDefault("server.port", 8080)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Fetch.Timeout <= 0 {
		return errors.New("fetch.timeout must be > 0")
	}
	if c.Fetch.Headless.Enabled && c.Fetch.Headless.MaxParallel <= 0 {
		return errors.New("fetch.headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Politeness.Delay < 0 || c.Politeness.BatchPause < 0 {
		return errors.New("politeness delays must not be negative")
	}
	if c.Politeness.Delay == 0 && c.Politeness.RPS <= 0 {
		return errors.New("politeness.delay or politeness.rps must be set")
	}
	if c.Politeness.BatchSize <= 0 {
		return errors.New("politeness.batch_size must be > 0")
	}
	if c.Discovery.MaxIdleRounds <= 0 || c.Discovery.MaxRounds <= 0 || c.Discovery.MaxAdvanceAttempts <= 0 {
		return errors.New("discovery caps must be > 0")
	}
	if c.Scrape.Limit < 0 {
		return errors.New("scrape.limit must be >= 0")
	}
	if !slices.Contains(classify.RuleSetVersions(), c.Classification.RuleSet) {
		return fmt.Errorf("classification.rule_set %q is unknown (have %s)",
			c.Classification.RuleSet, strings.Join(classify.RuleSetVersions(), ", "))
	}
	if c.Extraction.Enabled && c.Extraction.MaxTokens <= 0 {
		return errors.New("extraction.max_tokens must be > 0")
	}
	if c.Extraction.Enabled && c.Extraction.Delay <= 0 {
		return errors.New("extraction.delay must be > 0 when extraction is enabled")
	}
	switch c.Archive.Kind {
	case BackendNone, BackendMemory:
	case BackendLocal:
		if strings.TrimSpace(c.Archive.LocalDir) == "" {
			return errors.New("archive.local_dir must be set for the local archive")
		}
	case BackendGCS:
		if strings.TrimSpace(c.Archive.Bucket) == "" {
			return errors.New("archive.bucket must be set for the gcs archive")
		}
	default:
		return fmt.Errorf("archive.kind %q is not one of none, memory, local, gcs", c.Archive.Kind)
	}
	switch c.Notify.Kind {
	case BackendNone, BackendMemory:
	case BackendPubSub:
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return errors.New("notify.project_id and notify.topic must be set for pubsub")
		}
	default:
		return fmt.Errorf("notify.kind %q is not one of none, memory, pubsub", c.Notify.Kind)
	}
	if c.Server.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	for i, job := range c.Schedule.Jobs {
		if err := job.validate(); err != nil {
			return fmt.Errorf("schedule.jobs[%d]: %w", i, err)
		}
	}
	return nil
}

func (j JobConfig) validate() error {
	if strings.TrimSpace(j.Spec) == "" {
		return errors.New("spec is required")
	}
	if _, ok := sources.Lookup(j.Source); !ok {
		return fmt.Errorf("unknown source %q", j.Source)
	}
	switch j.Action {
	case ActionDiscover, ActionScrape, ActionPipeline:
	default:
		return fmt.Errorf("action %q is not one of discover, scrape, pipeline", j.Action)
	}
	if j.Limit < 0 {
		return errors.New("limit must be >= 0")
	}
	return nil
}

// RequireDatabase reports a setup error when no DSN is configured.
func (c Config) RequireDatabase() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required (set DATABASE_URL or STORIES_DATABASE_DSN)")
	}
	return nil
}

// ExtractionReady reports whether an extraction client can be built.
func (c Config) ExtractionReady() bool {
	return c.Extraction.Enabled && strings.TrimSpace(c.Extraction.APIKey) != ""
}
