package store

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"pointer/internal/identity"
	"pointer/pkg/platform/sentinel"
)

// InMemorySessionStore keeps sessions in process memory. Sessions do not
// survive a restart and are not shared between instances. Like the Redis
// store, each Save starts a fresh TTL; expired entries are dropped on read
// and swept at most once per TTL on write.
type InMemorySessionStore struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu        sync.Mutex
	sessions  map[string]memoryEntry
	nextSweep time.Time
}

type memoryEntry struct {
	session   *identity.Session
	expiresAt time.Time
}

type MemoryOption func(*InMemorySessionStore)

func WithClock(c clockwork.Clock) MemoryOption {
	return func(s *InMemorySessionStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewInMemorySessionStore keeps each session for ttl after its last save.
// A non-positive ttl keeps sessions until deleted.
func NewInMemorySessionStore(ttl time.Duration, opts ...MemoryOption) *InMemorySessionStore {
	s := &InMemorySessionStore{
		ttl:      ttl,
		clock:    clockwork.NewRealClock(),
		sessions: make(map[string]memoryEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.nextSweep = s.clock.Now().Add(ttl)
	return s
}

func (s *InMemorySessionStore) Load(_ context.Context, browserID string) (*identity.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[browserID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.expired(e, s.clock.Now()) {
		delete(s.sessions, browserID)
		return nil, sentinel.ErrNotFound
	}
	return e.session, nil
}

func (s *InMemorySessionStore) Save(_ context.Context, browserID string, session *identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.sweepLocked(now)
	s.sessions[browserID] = memoryEntry{session: session, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *InMemorySessionStore) Delete(_ context.Context, browserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, browserID)
	return nil
}

// Len returns the number of held entries, expired ones included until swept.
func (s *InMemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *InMemorySessionStore) expired(e memoryEntry, now time.Time) bool {
	return s.ttl > 0 && !now.Before(e.expiresAt)
}

func (s *InMemorySessionStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Before(s.nextSweep) {
		return
	}
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
		}
	}
	s.nextSweep = now.Add(s.ttl)
}
