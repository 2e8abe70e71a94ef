// internal/feed/adapter_test.go
package feed

import (
	"context"
	"testing"
	"time"

	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdapter(t *testing.T) (*Adapter, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewAdapter(client, "feed", logger.Nop()), client
}

func TestSubscribe_DeliversMatchingEvents(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	received := make(chan models.ChangeEvent, 1)
	sub, err := adapter.Subscribe(ctx, "notifications", "user-1", func(ev models.ChangeEvent) {
		received <- ev
	})
	require.NoError(t, err)
	defer sub.Close()

	event := models.ChangeEvent{
		Stream:    "notifications",
		Op:        models.OpInsert,
		Record:    map[string]interface{}{"id": "n-1", "type": "new_request"},
		Recipient: "user-1",
	}
	require.NoError(t, adapter.Publish(ctx, event))

	select {
	case got := <-received:
		assert.Equal(t, "notifications", got.Stream)
		assert.Equal(t, models.OpInsert, got.Op)
		assert.Equal(t, "n-1", got.Record["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestSubscribe_OtherRecipientNotDelivered(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	received := make(chan models.ChangeEvent, 1)
	sub, err := adapter.Subscribe(ctx, "notifications", "user-1", func(ev models.ChangeEvent) {
		received <- ev
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, adapter.Publish(ctx, models.ChangeEvent{
		Stream:    "notifications",
		Op:        models.OpInsert,
		Record:    map[string]interface{}{"id": "n-2"},
		Recipient: "user-2",
	}))

	select {
	case ev := <-received:
		t.Fatalf("unexpected delivery for other recipient: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribe_MalformedPayloadSkipped(t *testing.T) {
	adapter, client := setupAdapter(t)
	ctx := context.Background()

	received := make(chan models.ChangeEvent, 2)
	sub, err := adapter.Subscribe(ctx, "notifications", "user-1", func(ev models.ChangeEvent) {
		received <- ev
	})
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, client.Publish(ctx, "feed:notifications:user-1", "{not json").Err())
	require.NoError(t, adapter.Publish(ctx, models.ChangeEvent{
		Stream:    "notifications",
		Op:        models.OpInsert,
		Record:    map[string]interface{}{"id": "n-3"},
		Recipient: "user-1",
	}))

	select {
	case got := <-received:
		assert.Equal(t, "n-3", got.Record["id"])
	case <-time.After(2 * time.Second):
		t.Fatal("valid event after malformed payload was not delivered")
	}
}

func TestSubscription_CloseStopsDelivery(t *testing.T) {
	adapter, _ := setupAdapter(t)
	ctx := context.Background()

	received := make(chan models.ChangeEvent, 1)
	sub, err := adapter.Subscribe(ctx, "notifications", "user-1", func(ev models.ChangeEvent) {
		received <- ev
	})
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	// Close twice must not panic or block.
	require.NoError(t, sub.Close())

	_ = adapter.Publish(ctx, models.ChangeEvent{
		Stream:    "notifications",
		Op:        models.OpInsert,
		Record:    map[string]interface{}{"id": "n-4"},
		Recipient: "user-1",
	})

	select {
	case ev := <-received:
		t.Fatalf("delivery after Close: %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
