package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	path := writeConfig(t, `
logging:
  development: true
  level: debug
database:
  dsn: postgres://stories@localhost/stories
  max_conns: 8
fetch:
  user_agent: test-agent
  timeout: 20s
  headless:
    enabled: false
politeness:
  delay: 3s
  batch_size: 5
  batch_pause: 10s
discovery:
  max_idle_rounds: 4
scrape:
  limit: 25
  extract_always: true
classification:
  rule_set: v1
archive:
  kind: local
  local_dir: /tmp/archive
notify:
  kind: pubsub
  project_id: stories-prod
  topic: story-events
schedule:
  jobs:
    - name: anthropic-nightly
      spec: "0 3 * * *"
      source: anthropic
      action: pipeline
      limit: 50
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.Logging.Development)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "postgres://stories@localhost/stories", cfg.Database.DSN)
	require.EqualValues(t, 8, cfg.Database.MaxConns)
	require.Equal(t, "test-agent", cfg.Fetch.UserAgent)
	require.Equal(t, 20*time.Second, cfg.Fetch.Timeout)
	require.False(t, cfg.Fetch.Headless.Enabled)
	require.Equal(t, 3*time.Second, cfg.Politeness.Delay)
	require.Equal(t, 5, cfg.Politeness.BatchSize)
	require.Equal(t, 10*time.Second, cfg.Politeness.BatchPause)
	require.Equal(t, 4, cfg.Discovery.MaxIdleRounds)
	require.Equal(t, 50, cfg.Discovery.MaxRounds)
	require.Equal(t, 25, cfg.Scrape.Limit)
	require.True(t, cfg.Scrape.ExtractAlways)
	require.Equal(t, "v1", cfg.Classification.RuleSet)
	require.Equal(t, BackendLocal, cfg.Archive.Kind)
	require.Equal(t, BackendPubSub, cfg.Notify.Kind)
	require.Len(t, cfg.Schedule.Jobs, 1)
	require.Equal(t, JobConfig{Name: "anthropic-nightly", Spec: "0 3 * * *", Source: "anthropic", Action: ActionPipeline, Limit: 50}, cfg.Schedule.Jobs[0])
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Discovery.MaxIdleRounds)
	require.Equal(t, 50, cfg.Discovery.MaxRounds)
	require.Equal(t, 20, cfg.Discovery.MaxAdvanceAttempts)
	require.Equal(t, 100, cfg.Scrape.MinWords)
	require.Equal(t, 3, cfg.Scrape.MinCustomerIndicators)
	require.Equal(t, 10, cfg.Politeness.BatchSize)
	require.Equal(t, "v2", cfg.Classification.RuleSet)
	require.Equal(t, BackendNone, cfg.Archive.Kind)
	require.Equal(t, BackendNone, cfg.Notify.Kind)
	require.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadEnvOverridesAndAliases(t *testing.T) {
	t.Setenv("STORIES_SERVER_PORT", "9191")
	t.Setenv("STORIES_POLITENESS_DELAY", "750ms")
	t.Setenv("DATABASE_URL", "postgres://alias@db/stories")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, 750*time.Millisecond, cfg.Politeness.Delay)
	require.Equal(t, "postgres://alias@db/stories", cfg.Database.DSN)
	require.Equal(t, "sk-test", cfg.Extraction.APIKey)
	require.True(t, cfg.ExtractionReady())
	require.NoError(t, cfg.RequireDatabase())
}

func TestPrefixedEnvWinsOverAlias(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://alias@db/stories")
	t.Setenv("STORIES_DATABASE_DSN", "postgres://prefixed@db/stories")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "postgres://prefixed@db/stories", cfg.Database.DSN)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	base, err := Load("")
	require.NoError(t, err)
	require.False(t, base.ExtractionReady())
	require.Equal(t, time.Second, base.Extraction.Delay)
	require.Error(t, base.RequireDatabase())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"timeout", func(c *Config) { c.Fetch.Timeout = 0 }, "fetch.timeout"},
		{"headless parallel", func(c *Config) { c.Fetch.Headless.MaxParallel = 0 }, "max_parallel"},
		{"no politeness", func(c *Config) { c.Politeness.Delay = 0; c.Politeness.RPS = 0 }, "politeness"},
		{"batch size", func(c *Config) { c.Politeness.BatchSize = 0 }, "batch_size"},
		{"discovery caps", func(c *Config) { c.Discovery.MaxRounds = 0 }, "discovery caps"},
		{"rule set", func(c *Config) { c.Classification.RuleSet = "v9" }, "rule_set"},
		{"extraction delay", func(c *Config) { c.Extraction.Enabled = true; c.Extraction.Delay = 0 }, "extraction.delay"},
		{"archive kind", func(c *Config) { c.Archive.Kind = "s3" }, "archive.kind"},
		{"gcs bucket", func(c *Config) { c.Archive.Kind = BackendGCS }, "archive.bucket"},
		{"pubsub project", func(c *Config) { c.Notify.Kind = BackendPubSub }, "notify.project_id"},
		{"notify kind", func(c *Config) { c.Notify.Kind = "kafka" }, "notify.kind"},
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"job source", func(c *Config) {
			c.Schedule.Jobs = []JobConfig{{Spec: "@hourly", Source: "nope", Action: ActionScrape}}
		}, "unknown source"},
		{"job action", func(c *Config) {
			c.Schedule.Jobs = []JobConfig{{Spec: "@hourly", Source: "aws", Action: "crawl"}}
		}, "action"},
		{"job spec", func(c *Config) {
			c.Schedule.Jobs = []JobConfig{{Source: "aws", Action: ActionScrape}}
		}, "spec is required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.Schedule.Jobs = nil
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, strings.Contains(err.Error(), tc.want), "error %q should mention %q", err, tc.want)
		})
	}
}
