package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"pointer/internal/identity"
	"pointer/internal/platform/metrics"
)

var (
	ErrAlreadyMounted = errors.New("session provider already mounted")
	ErrDisposed       = errors.New("session provider disposed")
)

// Provider owns the Store of one browser context and its subscription to
// identity events. It goes Initializing (Loading) -> Resolved exactly once.
type Provider struct {
	store    *Store
	identity IdentityProvider
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	mounted  bool
	active   bool
	disposed bool
	sub      identity.Subscription
	resolved chan struct{}
	once     sync.Once
}

func NewProvider(idp IdentityProvider, opts ...Option) *Provider {
	o := newOptions(opts)
	p := &Provider{
		identity: idp,
		logger:   o.logger,
		metrics:  o.metrics,
		resolved: make(chan struct{}),
	}
	p.store = NewStore(idp, opts...)
	return p
}

// Mount subscribes to identity events, then performs the initial refresh.
// It blocks until that refresh completes.
func (p *Provider) Mount(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	if p.mounted {
		p.mu.Unlock()
		return ErrAlreadyMounted
	}
	p.mounted = true
	p.active = true
	p.mu.Unlock()

	sub := p.identity.OnAuthStateChange(p.handleEvent)

	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		sub.Unsubscribe()
		return ErrDisposed
	}
	p.sub = sub
	p.mu.Unlock()
	p.metrics.ProviderMounted()

	sess := p.store.fetch(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.active {
		p.store.write(sess, false)
		p.store.resolve()
		p.markResolved()
	}
	return nil
}

// Unmount drops the subscription and disposes the provider: it can never be
// mounted again, and later events and refreshes leave its state untouched.
// Unmounting a provider that was never mounted only disposes it.
func (p *Provider) Unmount() {
	p.mu.Lock()
	p.disposed = true
	if !p.active {
		p.mu.Unlock()
		p.markResolved()
		return
	}
	p.active = false
	sub := p.sub
	p.sub = nil
	p.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
		p.metrics.ProviderUnmounted()
	}
	p.markResolved()
}

func (p *Provider) handleEvent(event identity.AuthEvent) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.active {
		return
	}
	p.store.Apply(event)
	p.markResolved()
}

func (p *Provider) markResolved() {
	p.once.Do(func() { close(p.resolved) })
}

// Resolved is closed once the first refresh or event has landed, or the
// provider was unmounted.
func (p *Provider) Resolved() <-chan struct{} {
	return p.resolved
}

func (p *Provider) State() State {
	return p.store.State()
}

// Refresh re-reads the session and stores it while the provider is live.
func (p *Provider) Refresh(ctx context.Context) *identity.Session {
	sess := p.store.fetch(ctx)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.disposed {
		p.store.write(sess, false)
	}
	return sess
}

func (p *Provider) Watch(fn func(State)) (cancel func()) {
	return p.store.Watch(fn)
}

// Mounted reports whether the provider holds a live subscription.
func (p *Provider) Mounted() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}
