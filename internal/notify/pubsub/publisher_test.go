package pubsub

import (
	"context"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newFakeClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "stories-test", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishSendsJSONWithEventAttribute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client, srv := newFakeClient(t)
	_, err := client.CreateTopic(ctx, "story-events")
	require.NoError(t, err)

	pub, err := New(client, "story-events")
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	id, err := pub.Publish(ctx, "", map[string]any{"event": "story.created", "story_id": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	require.JSONEq(t, `{"event":"story.created","story_id":3}`, string(msgs[0].Data))
	require.Equal(t, "story.created", msgs[0].Attributes["event"])
	require.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestPublishToMissingTopicFails(t *testing.T) {
	t.Parallel()

	client, _ := newFakeClient(t)
	pub, err := New(client, "")
	require.NoError(t, err)
	t.Cleanup(pub.Close)

	_, err = pub.Publish(context.Background(), "", "x")
	require.ErrorContains(t, err, "not configured")

	_, err = pub.Publish(context.Background(), "does-not-exist", "x")
	require.Error(t, err)
}

func TestNewRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := New(nil, "t")
	require.Error(t, err)
}
