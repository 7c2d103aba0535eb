package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointer/internal/identity"
)

func TestMemoryBus(t *testing.T) {
	bus := NewMemoryBus()
	ctx := context.Background()

	var got []identity.EventType
	sub := bus.Subscribe("b-1", func(e identity.AuthEvent) { got = append(got, e.Type) })
	bus.Subscribe("b-2", func(identity.AuthEvent) { t.Fatal("other browser must not receive events") })

	require.NoError(t, bus.Publish(ctx, "b-1", identity.AuthEvent{Type: identity.EventSignedIn}))
	assert.Equal(t, 1, bus.Subscribers("b-1"))

	sub.Unsubscribe()
	sub.Unsubscribe()
	require.NoError(t, bus.Publish(ctx, "b-1", identity.AuthEvent{Type: identity.EventSignedOut}))

	assert.Equal(t, []identity.EventType{identity.EventSignedIn}, got)
	assert.Zero(t, bus.Subscribers("b-1"))
}

type recorder struct {
	mu     sync.Mutex
	events []identity.AuthEvent
}

func (r *recorder) handle(e identity.AuthEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []identity.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]identity.AuthEvent(nil), r.events...)
}

func TestRedisBusRelaysBetweenInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	a := NewRedisBus(newClient(), logger)
	b := NewRedisBus(newClient(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = a.Run(ctx) }()
	go func() { _ = b.Run(ctx) }()
	<-a.Ready()
	<-b.Ready()

	var onA, onB recorder
	a.Subscribe("b-1", onA.handle)
	b.Subscribe("b-1", onB.handle)

	sess := &identity.Session{AccessToken: "tok", User: &identity.User{ID: "u-1"}}
	require.NoError(t, a.Publish(ctx, "b-1", identity.AuthEvent{Type: identity.EventSignedIn, Session: sess}))

	require.Len(t, onA.snapshot(), 1, "local subscribers are notified synchronously")
	require.Eventually(t, func() bool { return len(onB.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	got := onB.snapshot()[0]
	assert.Equal(t, identity.EventSignedIn, got.Type)
	require.NotNil(t, got.Session)
	assert.Equal(t, "u-1", got.Session.User.ID)

	// the publishing instance must not see its own event twice
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, onA.snapshot(), 1)
}
