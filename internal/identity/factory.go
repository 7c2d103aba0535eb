package identity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"
)

const (
	defaultClientCapacity = 10_000
	defaultClientTTL      = time.Hour
)

// Factory hands out one BrowserClient per browser context. Clients are
// memoized by browser ID and never shared between browsers. The memo is
// bounded by count and idle time, so browsers that never come back do not
// pin memory.
type Factory struct {
	api      authAPI
	sessions SessionStore
	bus      EventBus
	verifier *TokenVerifier
	clock    clockwork.Clock
	logger   *slog.Logger

	capacity int
	ttl      time.Duration

	mu      sync.Mutex
	clients *expirable.LRU[string, *BrowserClient]
}

type FactoryOption func(*Factory)

func WithClock(c clockwork.Clock) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithCapacity bounds the memoized clients. Non-positive values keep the
// defaults.
func WithCapacity(size int, ttl time.Duration) FactoryOption {
	return func(f *Factory) {
		if size > 0 {
			f.capacity = size
		}
		if ttl > 0 {
			f.ttl = ttl
		}
	}
}

// WithVerifier enables access token signature checks on persisted sessions.
func WithVerifier(v *TokenVerifier) FactoryOption {
	return func(f *Factory) { f.verifier = v }
}

func NewFactory(api *GoTrueClient, sessions SessionStore, bus EventBus, opts ...FactoryOption) *Factory {
	return newFactory(api, sessions, bus, opts...)
}

func newFactory(api authAPI, sessions SessionStore, bus EventBus, opts ...FactoryOption) *Factory {
	f := &Factory{
		api:      api,
		sessions: sessions,
		bus:      bus,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		capacity: defaultClientCapacity,
		ttl:      defaultClientTTL,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.clients = expirable.NewLRU[string, *BrowserClient](f.capacity, nil, f.ttl)
	return f
}

// ForBrowser returns the memoized client for browserID.
func (f *Factory) ForBrowser(browserID string) *BrowserClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.clients.Get(browserID); ok {
		// re-adding renews the idle deadline
		f.clients.Add(browserID, c)
		return c
	}
	c := &BrowserClient{
		browserID: browserID,
		api:       f.api,
		sessions:  f.sessions,
		bus:       f.bus,
		verifier:  f.verifier,
		clock:     f.clock,
		logger:    f.logger,
	}
	f.clients.Add(browserID, c)
	return c
}

// Forget drops the memoized client. Persisted sessions are left intact.
func (f *Factory) Forget(browserID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients.Remove(browserID)
}

// Len returns the number of memoized clients.
func (f *Factory) Len() int {
	return f.clients.Len()
}
