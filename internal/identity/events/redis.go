package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"pointer/internal/identity"
)

const channelPrefix = "pointer:auth:"

type envelope struct {
	Origin string             `json:"origin"`
	Event  identity.AuthEvent `json:"event"`
}

// RedisBus delivers events locally right away and relays them over Redis
// pub/sub to the other instances. Messages an instance published itself are
// skipped on receipt so local subscribers see each event once.
type RedisBus struct {
	client *redis.Client
	local  *MemoryBus
	origin string
	logger *slog.Logger
	ready  chan struct{}
}

func NewRedisBus(client *redis.Client, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		local:  NewMemoryBus(),
		origin: uuid.NewString(),
		logger: logger,
		ready:  make(chan struct{}),
	}
}

func (b *RedisBus) Subscribe(browserID string, handler identity.AuthStateHandler) identity.Subscription {
	return b.local.Subscribe(browserID, handler)
}

func (b *RedisBus) Publish(ctx context.Context, browserID string, event identity.AuthEvent) error {
	_ = b.local.Publish(ctx, browserID, event)

	payload, err := json.Marshal(envelope{Origin: b.origin, Event: event})
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+browserID, payload).Err(); err != nil {
		return fmt.Errorf("publish auth event: %w", err)
	}
	return nil
}

// Ready is closed once Run holds a live subscription.
func (b *RedisBus) Ready() <-chan struct{} {
	return b.ready
}

// Run relays remote events to local subscribers until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) error {
	ps := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe auth events: %w", err)
	}
	close(b.ready)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.WarnContext(ctx, "dropping malformed auth event", "channel", msg.Channel, "error", err)
				continue
			}
			if env.Origin == b.origin {
				continue
			}
			browserID := strings.TrimPrefix(msg.Channel, channelPrefix)
			_ = b.local.Publish(ctx, browserID, env.Event)
		}
	}
}
