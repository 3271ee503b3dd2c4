package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

func TestStoryStoreDuplicates(t *testing.T) {
	t.Parallel()

	store := NewStoryStore(nil)
	ctx := context.Background()
	id, err := store.Insert(ctx, story.Story{URL: "u1", ContentHash: "h1", SourceID: "aws"})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)

	_, err = store.Insert(ctx, story.Story{URL: "u1", ContentHash: "h2"})
	require.ErrorIs(t, err, story.ErrDuplicate)
	_, err = store.Insert(ctx, story.Story{URL: "u2", ContentHash: "h1"})
	require.ErrorIs(t, err, story.ErrDuplicate)

	exists, err := store.Exists(ctx, "nope", "h1")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestStoryStoreReclassificationQueries(t *testing.T) {
	t.Parallel()

	store := NewStoryStore(nil)
	ctx := context.Background()
	genai := true
	_, err := store.Insert(ctx, story.Story{URL: "u1", ContentHash: "h1", SourceID: "aws", IsGenAI: &genai})
	require.NoError(t, err)
	_, err = store.Insert(ctx, story.Story{URL: "u2", ContentHash: "h2", SourceID: "aws", NeedsReview: true})
	require.NoError(t, err)
	_, err = store.Insert(ctx, story.Story{URL: "u3", ContentHash: "h3", SourceID: "openai", NeedsReview: true})
	require.NoError(t, err)

	all, err := store.ListForReclassification(ctx, story.StoryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	flagged, err := store.ListForReclassification(ctx, story.StoryFilter{SourceID: "aws", OnlyFlagged: true})
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	require.Equal(t, "u2", flagged[0].URL)

	review, err := store.ListNeedingReview(ctx, "", 1)
	require.NoError(t, err)
	require.Len(t, review, 1)
	require.Equal(t, int64(2), review[0].ID)

	verdict := story.Verdict{Category: story.CategoryTraditional, Method: story.MethodTier2, Confidence: 0.9}
	require.NoError(t, store.UpdateClassification(ctx, 2, verdict, false))
	got, _ := store.Get(2)
	require.Equal(t, story.CategoryTraditional, got.Category())
	require.NotNil(t, got.IsGenAI)
	require.False(t, *got.IsGenAI)
	require.False(t, got.NeedsReview)

	require.ErrorIs(t, store.UpdateClassification(ctx, 77, verdict, false), story.ErrNotFound)
}

func TestAuditLogEntries(t *testing.T) {
	t.Parallel()

	log := NewAuditLog()
	require.NoError(t, log.Record(context.Background(), story.AuditEntry{RunID: "r", StoryID: 1}))
	entries := log.Entries()
	require.Len(t, entries, 1)
	entries[0].RunID = "changed"
	require.Equal(t, "r", log.Entries()[0].RunID)
}
