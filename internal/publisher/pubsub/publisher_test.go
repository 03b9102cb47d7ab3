package pubsub

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type runEvent struct {
	RunID string `json:"run_id"`
	New   int    `json:"new_entries"`
}

func (e runEvent) Attributes() map[string]string {
	return map[string]string{"run_id": e.RunID}
}

func newTestClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, srv
}

func TestPublishDeliversJSON(t *testing.T) {
	ctx := context.Background()
	client, srv := newTestClient(t)
	_, err := client.CreateTopic(ctx, "scrape-runs")
	require.NoError(t, err)

	pub := New(client)
	defer pub.Close()

	id, err := pub.Publish(ctx, "scrape-runs", runEvent{RunID: "run-1", New: 3})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var got runEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, runEvent{RunID: "run-1", New: 3}, got)
	assert.Equal(t, "run-1", msgs[0].Attributes["run_id"])
	assert.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestPublishMissingTopic(t *testing.T) {
	client, _ := newTestClient(t)
	pub := New(client)
	defer pub.Close()

	_, err := pub.Publish(context.Background(), "does-not-exist", runEvent{RunID: "run-1"})
	require.Error(t, err)
}

func TestPublishWithoutClient(t *testing.T) {
	_, err := New(nil).Publish(context.Background(), "scrape-runs", "payload")
	require.Error(t, err)
}

func TestPublishUnmarshalablePayload(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := New(client).Publish(context.Background(), "scrape-runs", make(chan int))
	require.Error(t, err)
}
