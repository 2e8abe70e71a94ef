// Package feed carries row-level change events between the relay and its
// subscribers over Redis pub/sub.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"autoparts-relay/internal/common/logger"
	"autoparts-relay/internal/common/metrics"
	"autoparts-relay/internal/models"

	"github.com/redis/go-redis/v9"
)

// Adapter publishes and subscribes to change events on named record streams,
// filtered by a recipient key. The recipient filter is part of the channel
// address, so a subscription only ever sees its own scope.
type Adapter struct {
	client *redis.Client
	prefix string
	logger logger.Logger
}

func NewAdapter(client *redis.Client, prefix string, log logger.Logger) *Adapter {
	return &Adapter{
		client: client,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"component": "feed"}),
	}
}

func (a *Adapter) channel(stream, recipient string) string {
	return fmt.Sprintf("%s:%s:%s", a.prefix, stream, recipient)
}

// Publish sends a change event to the recipient's channel for its stream.
func (a *Adapter) Publish(ctx context.Context, event models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	return a.client.Publish(ctx, a.channel(event.Stream, event.Recipient), payload).Err()
}

// Subscription is a live change-feed connection. Close releases it; callers
// must close on every exit path or the connection leaks across navigations.
type Subscription struct {
	pubsub    *redis.PubSub
	done      chan struct{}
	closeOnce sync.Once
}

// Close releases the subscription's connection. Safe to call more than once.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pubsub.Close()
		<-s.done
	})
	return err
}

// Subscribe opens a persistent subscription for one (stream, recipient) scope
// and delivers each decoded event to onEvent, in the order Redis delivers
// them. Delivery is at-least-once while subscribed; a dropped connection is a
// silent gap (go-redis reconnects internally, missed messages are not
// replayed).
func (a *Adapter) Subscribe(ctx context.Context, stream, recipient string, onEvent func(models.ChangeEvent)) (*Subscription, error) {
	pubsub := a.client.Subscribe(ctx, a.channel(stream, recipient))

	// Force the subscription onto the wire before returning the handle.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", stream, err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		for msg := range pubsub.Channel() {
			var event models.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				a.logger.Warn("dropping malformed feed payload", map[string]interface{}{
					"channel": msg.Channel,
					"error":   err.Error(),
				})
				continue
			}
			metrics.FeedEventsDelivered.WithLabelValues(event.Stream).Inc()
			onEvent(event)
		}
	}()

	return sub, nil
}
