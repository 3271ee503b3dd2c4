package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestFrontierEnqueueIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore(&stepClock{})
	ctx := context.Background()
	inserted, err := store.Enqueue(ctx, "aws", story.Candidate{URL: "https://aws.amazon.com/a", Title: "A"})
	require.NoError(t, err)
	require.True(t, inserted)

	items, err := store.DequeueBatch(ctx, "aws", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NoError(t, store.MarkAttempt(ctx, items[0].ID, story.StatusScraping, ""))

	inserted, err = store.Enqueue(ctx, "aws", story.Candidate{URL: "https://aws.amazon.com/a", CustomerName: "Acme"})
	require.NoError(t, err)
	require.False(t, inserted)

	got, ok := store.Get(items[0].ID)
	require.True(t, ok)
	require.Equal(t, story.StatusScraping, got.Status, "re-enqueue must not reset status")
	require.Equal(t, "Acme", got.InferredCustomerName)
	require.Equal(t, "A", got.InferredTitle)
}

func TestFrontierDequeueOrder(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore(&stepClock{})
	ctx := context.Background()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range []story.Candidate{
		{URL: "u-undated-1"},
		{URL: "u-older", PublishDate: &older},
		{URL: "u-undated-2"},
		{URL: "u-newer", PublishDate: &newer},
	} {
		_, err := store.Enqueue(ctx, "openai", c)
		require.NoError(t, err)
	}
	_, err := store.Enqueue(ctx, "aws", story.Candidate{URL: "other-source"})
	require.NoError(t, err)

	items, err := store.DequeueBatch(ctx, "openai", 3)
	require.NoError(t, err)
	var urls []string
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	require.Equal(t, []string{"u-newer", "u-older", "u-undated-1"}, urls)
}

func TestFrontierLifecycle(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore(nil)
	ctx := context.Background()
	_, err := store.Enqueue(ctx, "openai", story.Candidate{URL: "u"})
	require.NoError(t, err)

	require.ErrorIs(t, store.MarkAttempt(ctx, 1, story.StatusScraped, ""), story.ErrInvalidTransition)
	require.NoError(t, store.MarkAttempt(ctx, 1, story.StatusScraping, ""))
	require.NoError(t, store.MarkAttempt(ctx, 1, story.StatusFailed, "http 503"))
	require.ErrorIs(t, store.MarkAttempt(ctx, 1, story.StatusScraping, ""), story.ErrInvalidTransition)
	require.ErrorIs(t, store.MarkAttempt(ctx, 99, story.StatusScraping, ""), story.ErrNotFound)

	got, _ := store.Get(1)
	require.Equal(t, 2, got.AttemptCount)
	require.Equal(t, "http 503", got.LastError)
	require.NotNil(t, got.LastAttemptAt)

	items, err := store.DequeueBatch(ctx, "openai", 10)
	require.NoError(t, err)
	require.Empty(t, items, "failed items are not retried automatically")

	n, err := store.Reset(ctx, "openai", story.StatusFailed)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	got, _ = store.Get(1)
	require.Equal(t, story.StatusPending, got.Status)
	require.Equal(t, 2, got.AttemptCount)

	_, err = store.Reset(ctx, "", story.StatusPending)
	require.ErrorIs(t, err, story.ErrInvalidTransition)
}

func TestFrontierStats(t *testing.T) {
	t.Parallel()

	store := NewFrontierStore(nil)
	ctx := context.Background()
	for _, u := range []string{"a", "b", "c"} {
		_, err := store.Enqueue(ctx, "aws", story.Candidate{URL: u})
		require.NoError(t, err)
	}
	require.NoError(t, store.MarkAttempt(ctx, 2, story.StatusScraping, ""))

	stats, err := store.Stats(ctx, "aws")
	require.NoError(t, err)
	require.Equal(t, []story.StatusCount{
		{SourceID: "aws", Status: story.StatusPending, Count: 2},
		{SourceID: "aws", Status: story.StatusScraping, Count: 1},
	}, stats)
}
