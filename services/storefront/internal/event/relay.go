package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "cart-changes:"

// Channel returns the Redis pub/sub channel for a session.
func Channel(sessionID string) string {
	return channelPrefix + sessionID
}

// RedisRelay publishes notifications through Redis pub/sub so that every
// storefront replica can deliver them to its own subscribers. Messages that
// carry this relay's origin were already delivered locally and are skipped.
type RedisRelay struct {
	client redis.UniversalClient
	hub    *Hub
	origin string
	logger *slog.Logger
	ready  chan struct{}
}

// NewRedisRelay creates a relay identified by origin.
func NewRedisRelay(client redis.UniversalClient, hub *Hub, origin string, logger *slog.Logger) *RedisRelay {
	return &RedisRelay{
		client: client,
		hub:    hub,
		origin: origin,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Publish delivers the notification locally and broadcasts it to the other
// replicas.
func (r *RedisRelay) Publish(ctx context.Context, ev CartChanged) error {
	ev.Origin = r.origin
	r.hub.Deliver(ev)

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal cart change: %w", err)
	}
	if err := r.client.Publish(ctx, Channel(ev.SessionID), data).Err(); err != nil {
		return fmt.Errorf("redis publish cart change: %w", err)
	}
	return nil
}

// Ready is closed once the relay's subscription is active.
func (r *RedisRelay) Ready() <-chan struct{} {
	return r.ready
}

// Run consumes notifications from other replicas until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe cart changes: %w", err)
	}
	close(r.ready)
	r.logger.InfoContext(ctx, "cart change relay subscribed",
		slog.String("origin", r.origin),
	)

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.handle(ctx, msg)
		}
	}
}

func (r *RedisRelay) handle(ctx context.Context, msg *redis.Message) {
	var ev CartChanged
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		r.logger.WarnContext(ctx, "dropping malformed cart change",
			slog.String("channel", msg.Channel),
			slog.String("error", err.Error()),
		)
		return
	}
	if ev.Origin == r.origin {
		return
	}
	if ev.SessionID == "" {
		ev.SessionID = strings.TrimPrefix(msg.Channel, channelPrefix)
	}
	r.hub.Deliver(ev)
}
