package app_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/app"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/config"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/reclassify"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/sources"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/storage/memory"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

const storyBody = `<html><head><title>%s</title></head><body><article>
<h1>%s</h1>
<p>The customer deployed generative AI with a large language model to answer support tickets.
The company measured results across every team and the implementation improved response times.
%s</p></article></body></html>`

func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/customers", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body>
<a href="/customers/acme">Acme</a>
<a href="/customers/globex">Globex</a>
<a href="/privacy">Privacy</a>
</body></html>`)
	})
	mux.HandleFunc("/customers/acme", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, storyBody, "Acme builds an assistant", "Acme builds an assistant", "Acme runs on Claude.")
	})
	mux.HandleFunc("/customers/globex", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, storyBody, "Globex automates triage", "Globex automates triage", "Globex uses GPT-4.")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Database.DSN = ""
	cfg.Fetch.RespectRobots = false
	cfg.Fetch.Timeout = 5 * time.Second
	cfg.Fetch.Headless.Enabled = false
	cfg.Politeness.Delay = time.Millisecond
	cfg.Politeness.BatchPause = 0
	cfg.Discovery.MaxIdleRounds = 1
	cfg.Discovery.MaxRounds = 2
	cfg.Discovery.MaxAdvanceAttempts = 1
	cfg.Scrape.MinWords = 10
	cfg.Scrape.MinCustomerIndicators = 2
	cfg.Extraction.Enabled = false
	cfg.Archive.Kind = config.BackendMemory
	cfg.Notify.Kind = config.BackendMemory
	cfg.Metrics.PushURL = ""
	return cfg
}

type memoryStores struct {
	frontier *memory.FrontierStore
	stories  *memory.StoryStore
	audit    *memory.AuditLog
}

func newStores() (memoryStores, app.Stores) {
	m := memoryStores{
		frontier: memory.NewFrontierStore(nil),
		stories:  memory.NewStoryStore(nil),
		audit:    memory.NewAuditLog(),
	}
	return m, app.Stores{Frontier: m.frontier, Stories: m.stories, Audit: m.audit}
}

func siteDefinition(baseURL string) sources.Definition {
	return sources.Definition{
		ID:              "testsite",
		Name:            "Test Site",
		BaseURL:         baseURL,
		ListingURL:      baseURL + "/customers",
		StoryPrefixes:   []string{"/customers/"},
		SingleSegment:   true,
		InvalidPatterns: []string{"/privacy"},
		LinkSelector:    `a[href*="/customers/"]`,
	}
}

func TestNewRequiresDatabase(t *testing.T) {
	cfg := testConfig(t)
	_, err := app.New(context.Background(), cfg, zap.NewNop())
	require.ErrorContains(t, err, "database.dsn")
}

func TestNewWithInjectedStores(t *testing.T) {
	cfg := testConfig(t)
	_, stores := newStores()
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithStores(stores))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.ErrorIs(t, a.Migrate(context.Background()), app.ErrNoDatabase)
	require.Len(t, a.Sources(), len(sources.Builtin()))

	_, err = a.Provider("nope")
	require.ErrorContains(t, err, "unknown source")
	p, err := a.Provider(" Anthropic ")
	require.NoError(t, err)
	require.Equal(t, "anthropic", p.ID())
}

func TestNewRejectsUnknownRuleSet(t *testing.T) {
	cfg := testConfig(t)
	cfg.Classification.RuleSet = "v9"
	_, stores := newStores()
	_, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithStores(stores))
	require.ErrorContains(t, err, "rule set")
}

func TestNewLocalArchive(t *testing.T) {
	cfg := testConfig(t)
	cfg.Archive.Kind = config.BackendLocal
	cfg.Archive.LocalDir = t.TempDir()
	_, stores := newStores()
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithStores(stores))
	require.NoError(t, err)
	a.Close()
}

func TestRunJobPipeline(t *testing.T) {
	site := newSite(t)
	cfg := testConfig(t)
	m, stores := newStores()
	a, err := app.New(context.Background(), cfg, zap.NewNop(),
		app.WithStores(stores), app.WithSources(siteDefinition(site.URL)))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ctx := context.Background()
	err = a.RunJob(ctx, config.JobConfig{Name: "nightly", Source: "testsite", Action: config.ActionPipeline})
	require.NoError(t, err)

	counts, err := m.frontier.Stats(ctx, "testsite")
	require.NoError(t, err)
	require.Equal(t, []story.StatusCount{{SourceID: "testsite", Status: story.StatusScraped, Count: 2}}, counts)

	stored, err := m.stories.ListForReclassification(ctx, story.StoryFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, st := range stored {
		require.Equal(t, "testsite", st.SourceID)
		require.NotEmpty(t, st.ContentHash)
		require.NotEmpty(t, st.RawContent.ScrapingInfo.ArchiveURI)
	}

	// A second run finds nothing new and nothing pending.
	res, err := a.Discover(ctx, "testsite")
	require.NoError(t, err)
	require.Zero(t, res.New)
	sum, err := a.Scrape(ctx, "testsite", 0)
	require.NoError(t, err)
	require.Zero(t, sum.Processed)
}

func TestRunJobUnknownAction(t *testing.T) {
	cfg := testConfig(t)
	_, stores := newStores()
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithStores(stores))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	err = a.RunJob(context.Background(), config.JobConfig{Source: "anthropic", Action: "crawl"})
	require.ErrorContains(t, err, "unknown job action")
}

func TestReclassifyWithOtherRuleSet(t *testing.T) {
	cfg := testConfig(t)
	m, stores := newStores()
	a, err := app.New(context.Background(), cfg, zap.NewNop(), app.WithStores(stores))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	ctx := context.Background()
	_, err = m.stories.Insert(ctx, story.Story{
		SourceID:    "openai",
		Title:       "Globex deploys GPT-4 for claims",
		URL:         "https://openai.com/index/globex",
		ContentHash: "h1",
		RawContent:  story.RawContent{Text: "Globex deployed GPT-4 to read claims."},
		IsGenAI:     new(bool),
	})
	require.NoError(t, err)

	rep, err := a.Reclassify(ctx, "v1", reclassify.Options{})
	require.NoError(t, err)
	require.Equal(t, "v1", rep.RuleSetVersion)
	require.True(t, rep.DryRun)
	require.Equal(t, 1, rep.Examined)

	_, err = a.Reclassify(ctx, "v9", reclassify.Options{})
	require.ErrorContains(t, err, "rule set")
}
