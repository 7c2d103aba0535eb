package identity

import "context"

// SessionStore persists the session of each browser context between requests.
// Load returns sentinel.ErrNotFound when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context, browserID string) (*Session, error)
	Save(ctx context.Context, browserID string, session *Session) error
	Delete(ctx context.Context, browserID string) error
}

// EventBus fans auth events out to the subscribers of one browser context,
// across every server instance sharing the bus.
type EventBus interface {
	Publish(ctx context.Context, browserID string, event AuthEvent) error
	Subscribe(browserID string, handler AuthStateHandler) Subscription
}
