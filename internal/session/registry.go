package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pointer/internal/platform/metrics"
)

// Registry memoizes one mounted Provider per browser ID. Providers are
// bounded by count and by time since last use; eviction unmounts them and
// calls the release hook.
type Registry struct {
	newIdentity  func(browserID string) IdentityProvider
	opts         []Option
	logger       *slog.Logger
	metrics      *metrics.Metrics
	mountTimeout time.Duration
	release      func(browserID string)

	mu    sync.Mutex
	cache *expirable.LRU[string, *Provider]
}

func NewRegistry(newIdentity func(browserID string) IdentityProvider, size int, ttl time.Duration, opts ...Option) *Registry {
	o := newOptions(opts)
	r := &Registry{
		newIdentity:  newIdentity,
		opts:         opts,
		logger:       o.logger,
		metrics:      o.metrics,
		mountTimeout: o.mountTimeout,
		release:      o.release,
	}
	r.cache = expirable.NewLRU[string, *Provider](size, r.evicted, ttl)
	return r
}

// Get returns the browser's Provider, mounting it on first use, and waits
// until its initial state has resolved or ctx ends.
//
// A Provider evicted before its mount completes is disposed; Get then
// retries once with a fresh one.
func (r *Registry) Get(ctx context.Context, browserID string) (*Provider, error) {
	p, err := r.getMounted(ctx, browserID)
	if errors.Is(err, ErrDisposed) {
		p, err = r.getMounted(ctx, browserID)
	}
	if err != nil {
		return nil, err
	}

	select {
	case <-p.Resolved():
		return p, nil
	case <-ctx.Done():
		return p, ctx.Err()
	}
}

func (r *Registry) getMounted(ctx context.Context, browserID string) (*Provider, error) {
	p, created := r.lookup(browserID)
	if !created {
		return p, nil
	}
	mountCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.mountTimeout)
	defer cancel()
	if err := p.Mount(mountCtx); err != nil {
		return nil, err
	}
	r.logger.DebugContext(ctx, "session provider mounted", "browser_id", browserID)
	return p, nil
}

func (r *Registry) lookup(browserID string) (*Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.cache.Get(browserID); ok {
		// re-adding an existing key renews its TTL without eviction
		r.cache.Add(browserID, p)
		return p, false
	}
	// an expired entry is still held until the janitor runs; evict it so
	// its subscription is dropped before the replacement mounts
	r.cache.Remove(browserID)
	p := NewProvider(r.newIdentity(browserID), r.opts...)
	r.cache.Add(browserID, p)
	return p, true
}

// Remove unmounts and forgets the browser's Provider, if any.
func (r *Registry) Remove(browserID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(browserID)
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close unmounts every Provider.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}

func (r *Registry) evicted(browserID string, p *Provider) {
	p.Unmount()
	if r.release != nil {
		r.release(browserID)
	}
}
