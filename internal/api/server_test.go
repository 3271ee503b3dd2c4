package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/storage/memory"
	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type failingStats struct{}

func (failingStats) Stats(context.Context, string) ([]story.StatusCount, error) {
	return nil, errors.New("db down")
}

func (failingStats) Reset(context.Context, string, story.FrontierStatus) (int64, error) {
	return 0, errors.New("db down")
}

type fixture struct {
	frontier *memory.FrontierStore
	stories  *memory.StoryStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	clock := fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	f := fixture{
		frontier: memory.NewFrontierStore(clock),
		stories:  memory.NewStoryStore(clock),
	}

	for _, u := range []string{
		"https://www.anthropic.com/customers/acme",
		"https://www.anthropic.com/customers/globex",
	} {
		_, err := f.frontier.Enqueue(ctx, "anthropic", story.Candidate{URL: u})
		require.NoError(t, err)
	}
	_, err := f.frontier.Enqueue(ctx, "aws", story.Candidate{URL: "https://aws.amazon.com/solutions/case-studies/initech/"})
	require.NoError(t, err)
	batch, err := f.frontier.DequeueBatch(ctx, "anthropic", 1)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	require.NoError(t, f.frontier.MarkAttempt(ctx, batch[0].ID, story.StatusFailed, "timeout"))

	flagged, err := f.stories.Insert(ctx, story.Story{
		SourceID:    "anthropic",
		Title:       "Acme modernizes support",
		URL:         "https://www.anthropic.com/customers/acme",
		ContentHash: "hash-acme",
		RawContent: story.RawContent{
			HTML:         "<html>secret markup</html>",
			ScrapingInfo: story.ScrapingInfo{ArchiveURI: "gs://bucket/anthropic/hash-acme.html"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.stories.UpdateClassification(ctx, flagged, story.Verdict{
		Category:   story.CategoryUnclear,
		Confidence: 0.5,
		Method:     story.MethodTier4,
	}, true))
	_, err = f.stories.Insert(ctx, story.Story{
		SourceID:    "openai",
		Title:       "Globex deploys GPT-4",
		URL:         "https://openai.com/index/globex",
		ContentHash: "hash-globex",
	})
	require.NoError(t, err)
	return f
}

func (f fixture) server(opts Options, db Pinger) *Server {
	return NewServer(Deps{
		Frontier: f.frontier,
		Review:   f.stories,
		Database: db,
	}, opts, zap.NewNop())
}

func do(t *testing.T, s *Server, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealthzAndRequestID(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{}, nil)
	rec := do(t, s, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = do(t, s, "/healthz", http.Header{"X-Request-Id": {"req-7"}})
	require.Equal(t, "req-7", rec.Header().Get("X-Request-ID"))
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	rec := do(t, f.server(Options{}, fakePinger{}), "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, f.server(Options{}, fakePinger{err: errors.New("refused")}), "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotContains(t, rec.Body.String(), "refused")
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{}, nil)
	do(t, s, "/healthz", nil)
	rec := do(t, s, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestFrontierStats(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{}, nil)

	var body struct {
		Counts []story.StatusCount `json:"counts"`
		Total  int                 `json:"total"`
	}
	rec := do(t, s, "/v1/frontier/stats?source=anthropic", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	require.Equal(t, 2, body.Total)
	require.ElementsMatch(t, []story.StatusCount{
		{SourceID: "anthropic", Status: story.StatusPending, Count: 1},
		{SourceID: "anthropic", Status: story.StatusFailed, Count: 1},
	}, body.Counts)

	rec = do(t, s, "/v1/frontier/stats?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &body)
	require.Equal(t, 2, body.Total)
	for _, c := range body.Counts {
		require.Equal(t, story.StatusPending, c.Status)
	}
}

func TestFrontierStatsRejectsBadInput(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{}, nil)
	require.Equal(t, http.StatusBadRequest, do(t, s, "/v1/frontier/stats?source=nope", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(t, s, "/v1/frontier/stats?status=done", nil).Code)
}

func TestFrontierStatsStoreError(t *testing.T) {
	t.Parallel()

	s := NewServer(Deps{Frontier: failingStats{}}, Options{}, zap.NewNop())
	rec := do(t, s, "/v1/frontier/stats", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "db down")
}

func TestReviewQueue(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{}, nil)
	rec := do(t, s, "/v1/stories/review", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "secret markup")

	var body struct {
		Stories []reviewDTO `json:"stories"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Stories, 1)
	got := body.Stories[0]
	require.Equal(t, "anthropic", got.SourceID)
	require.Equal(t, story.CategoryUnclear, got.Category)
	require.Equal(t, story.MethodTier4, got.Method)
	require.Equal(t, "gs://bucket/anthropic/hash-acme.html", got.ArchiveURI)

	rec = do(t, s, "/v1/stories/review?source=openai", nil)
	decode(t, rec, &body)
	require.Empty(t, body.Stories)
}

func TestReviewQueueLimitValidation(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{}, nil)
	require.Equal(t, http.StatusBadRequest, do(t, s, "/v1/stories/review?limit=abc", nil).Code)
	require.Equal(t, http.StatusBadRequest, do(t, s, "/v1/stories/review?limit=0", nil).Code)
	require.Equal(t, http.StatusOK, do(t, s, "/v1/stories/review?limit=9999", nil).Code)
}

func TestUnavailableStores(t *testing.T) {
	t.Parallel()

	s := NewServer(Deps{}, Options{}, nil)
	require.Equal(t, http.StatusServiceUnavailable, do(t, s, "/v1/frontier/stats", nil).Code)
	require.Equal(t, http.StatusServiceUnavailable, do(t, s, "/v1/stories/review", nil).Code)
}

func TestSources(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{}, nil)

	rec := do(t, s, "/v1/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"anthropic"`)

	rec = do(t, s, "/v1/sources/aws", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"listing_url"`)

	require.Equal(t, http.StatusNotFound, do(t, s, "/v1/sources/nope", nil).Code)
}

func TestAPIKeyGuard(t *testing.T) {
	t.Parallel()

	s := newFixture(t).server(Options{APIKey: "s3cret"}, nil)

	require.Equal(t, http.StatusUnauthorized, do(t, s, "/v1/sources", nil).Code)
	require.Equal(t, http.StatusUnauthorized, do(t, s, "/v1/sources", http.Header{"X-Api-Key": {"wrong"}}).Code)
	require.Equal(t, http.StatusOK, do(t, s, "/v1/sources", http.Header{"X-Api-Key": {"s3cret"}}).Code)
	require.Equal(t, http.StatusOK, do(t, s, "/healthz", nil).Code)
}
