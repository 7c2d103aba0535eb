package events

import (
	"context"
	"sync"

	"pointer/internal/identity"
)

// MemoryBus delivers events synchronously to the subscribers of a browser in
// the calling goroutine. Handlers run outside the bus lock.
type MemoryBus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string]map[uint64]identity.AuthStateHandler
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{handlers: make(map[string]map[uint64]identity.AuthStateHandler)}
}

func (b *MemoryBus) Subscribe(browserID string, handler identity.AuthStateHandler) identity.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.handlers[browserID] == nil {
		b.handlers[browserID] = make(map[uint64]identity.AuthStateHandler)
	}
	b.handlers[browserID][id] = handler

	var once sync.Once
	return unsubscribeFunc(func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers[browserID], id)
			if len(b.handlers[browserID]) == 0 {
				delete(b.handlers, browserID)
			}
		})
	})
}

func (b *MemoryBus) Publish(_ context.Context, browserID string, event identity.AuthEvent) error {
	for _, h := range b.snapshot(browserID) {
		h(event)
	}
	return nil
}

// Subscribers returns the number of live handlers for a browser.
func (b *MemoryBus) Subscribers(browserID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[browserID])
}

func (b *MemoryBus) snapshot(browserID string) []identity.AuthStateHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]identity.AuthStateHandler, 0, len(b.handlers[browserID]))
	for _, h := range b.handlers[browserID] {
		out = append(out, h)
	}
	return out
}

type unsubscribeFunc func()

func (f unsubscribeFunc) Unsubscribe() { f() }
