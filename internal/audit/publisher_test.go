package audit_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointer/internal/audit"
	"pointer/internal/audit/store/memory"
	"pointer/internal/platform/metrics"
	"pointer/pkg/requestcontext"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore(0)
	pub := audit.NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{UserID: "u-1", Action: audit.ActionSignIn, Outcome: audit.OutcomeSuccess})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionSignIn, events[0].Action)
}

func TestPublisher_EnrichesFromRequestContext(t *testing.T) {
	store := memory.NewInMemoryStore(0)
	pub := audit.NewPublisher(store)

	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithBrowserID(ctx, "b-1")
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1",
		"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0")

	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.ActionSignOut, Outcome: audit.OutcomeSuccess}))

	events, err := store.ListByBrowser(context.Background(), "b-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	got := events[0]
	assert.Equal(t, fixed, got.Timestamp)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "10.0.0.1", got.ClientIP)
	assert.Contains(t, got.Device, "Firefox")
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore(0)
	pub := audit.NewPublisher(store)

	custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{BrowserID: "b-1", Action: audit.ActionSignIn, Timestamp: custom}))

	events, err := store.ListByBrowser(context.Background(), "b-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, custom, events[0].Timestamp)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore(0)
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(100), audit.WithLogger(quietLogger()))

	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{BrowserID: "b-1", Action: audit.ActionResend}))
	}
	pub.Close()
	pub.Close()

	events, err := store.ListByBrowser(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

// blockingStore holds every append until released.
type blockingStore struct {
	release chan struct{}
	mu      sync.Mutex
	count   int
}

func (s *blockingStore) Append(context.Context, audit.Event) error {
	<-s.release
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	return nil
}

func TestPublisher_BufferFullDropsAndCounts(t *testing.T) {
	store := &blockingStore{release: make(chan struct{})}
	m := metrics.New(prometheus.NewRegistry())
	pub := audit.NewPublisher(store, audit.WithAsyncBuffer(1), audit.WithMetrics(m), audit.WithLogger(quietLogger()))

	var dropped int
	for range 5 {
		if err := pub.Emit(context.Background(), audit.Event{Action: audit.ActionSignIn}); errors.Is(err, audit.ErrBufferFull) {
			dropped++
		}
	}
	close(store.release)
	pub.Close()

	assert.GreaterOrEqual(t, dropped, 3, "worker holds at most one event and the buffer one more")
	assert.Equal(t, float64(dropped), testutil.ToFloat64(m.AuditDropped))
}

type failingStore struct{ calls int }

func (s *failingStore) Append(context.Context, audit.Event) error {
	s.calls++
	return errors.New("store down")
}

func TestWorker_ContinuesAfterAppendFailure(t *testing.T) {
	store := &failingStore{}
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Action: audit.ActionSignIn}
	inbox <- audit.Event{Action: audit.ActionSignOut}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	audit.NewWorker(store, inbox, quietLogger()).Run(ctx)

	assert.Equal(t, 2, store.calls, "buffered events are drained even after cancellation")
}

func TestDeviceLabel(t *testing.T) {
	assert.Empty(t, audit.DeviceLabel(""))
	assert.Equal(t, "Firefox on Linux", audit.DeviceLabel("Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0"))
	assert.Contains(t, audit.DeviceLabel("Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"), "bot")
}
