package session

import (
	"context"
	"log/slog"
	"sync"

	"pointer/internal/identity"
	"pointer/internal/platform/metrics"
)

// IdentityProvider is what the session layer needs from the identity client.
type IdentityProvider interface {
	GetSession(ctx context.Context) (*identity.Session, error)
	OnAuthStateChange(handler identity.AuthStateHandler) identity.Subscription
}

// State is a snapshot of one browser's authentication.
// User is non-nil iff Session is non-nil.
type State struct {
	Session *identity.Session
	User    *identity.User
	Loading bool
}

// Authenticated reports whether a user is present.
func (s State) Authenticated() bool { return s.User != nil }

// Store is the session cell of one browser context. Every write replaces the
// whole value; the last completed write wins.
type Store struct {
	provider IdentityProvider
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	session  *identity.Session
	loading  bool
	nextID   int
	watchers map[int]func(State)
}

func NewStore(provider IdentityProvider, opts ...Option) *Store {
	o := newOptions(opts)
	return &Store{
		provider: provider,
		logger:   o.logger,
		metrics:  o.metrics,
		loading:  true,
		watchers: make(map[int]func(State)),
	}
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Refresh asks the provider for the current session and stores the result.
// Any provider failure is treated as "no session": Refresh never fails.
func (s *Store) Refresh(ctx context.Context) *identity.Session {
	sess := s.fetch(ctx)
	s.write(sess, false)
	return sess
}

// fetch asks the provider without storing the answer.
func (s *Store) fetch(ctx context.Context) *identity.Session {
	sess, err := s.provider.GetSession(ctx)
	switch {
	case err != nil:
		s.logger.WarnContext(ctx, "session refresh failed", "error", err)
		s.metrics.IncSessionRefresh("error")
		sess = nil
	case sess == nil:
		s.metrics.IncSessionRefresh("empty")
	default:
		s.metrics.IncSessionRefresh("session")
	}
	return sess
}

// Apply stores the session carried by a pushed auth event, unconditionally,
// and marks the store resolved.
func (s *Store) Apply(event identity.AuthEvent) {
	s.metrics.IncSessionEvent(string(event.Type))
	s.write(event.Session, true)
}

// Watch registers fn to receive every state transition. The returned func
// stops delivery.
func (s *Store) Watch(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.watchers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

// resolve clears Loading without touching the session.
func (s *Store) resolve() {
	s.mu.Lock()
	if !s.loading {
		s.mu.Unlock()
		return
	}
	s.loading = false
	state, watchers := s.snapshotLocked(), s.watchersLocked()
	s.mu.Unlock()
	notify(watchers, state)
}

func (s *Store) write(sess *identity.Session, resolve bool) {
	s.mu.Lock()
	s.session = sess
	if resolve {
		s.loading = false
	}
	state, watchers := s.snapshotLocked(), s.watchersLocked()
	s.mu.Unlock()
	notify(watchers, state)
}

func (s *Store) snapshotLocked() State {
	st := State{Session: s.session, Loading: s.loading}
	if s.session != nil {
		st.User = s.session.User
		if st.User == nil {
			st.User = &identity.User{}
		}
	}
	return st
}

func (s *Store) watchersLocked() []func(State) {
	out := make([]func(State), 0, len(s.watchers))
	for _, fn := range s.watchers {
		out = append(out, fn)
	}
	return out
}

func notify(watchers []func(State), state State) {
	for _, fn := range watchers {
		fn(state)
	}
}
