package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"pointer/pkg/platform/sentinel"
)

// RefreshMargin is how close to expiry a session may get before GetSession
// refreshes it.
const RefreshMargin = 10 * time.Second

// refreshTimeout bounds a shared refresh, which outlives the caller that
// started it.
const refreshTimeout = 15 * time.Second

// authAPI is the subset of GoTrueClient a BrowserClient drives.
type authAPI interface {
	PasswordGrant(ctx context.Context, creds Credentials) (*Session, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*Session, error)
	SignUp(ctx context.Context, creds Credentials, redirectTo string) (*AuthResponse, error)
	Logout(ctx context.Context, accessToken string) error
	Resend(ctx context.Context, params ResendParams) error
}

// BrowserClient is the Provider for one browser context. It persists the
// session, refreshes it near expiry and publishes auth events on change.
type BrowserClient struct {
	browserID string
	api       authAPI
	sessions  SessionStore
	bus       EventBus
	verifier  *TokenVerifier
	clock     clockwork.Clock
	logger    *slog.Logger

	refresh singleflight.Group
}

var _ Provider = (*BrowserClient)(nil)

func (c *BrowserClient) BrowserID() string { return c.browserID }

// GetSession returns the persisted session, refreshing it first when it is
// about to expire. Concurrent callers share one refresh because refresh
// tokens are single use.
func (c *BrowserClient) GetSession(ctx context.Context) (*Session, error) {
	sess, err := c.sessions.Load(ctx, c.browserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if c.verifier.Verifying() {
		if _, err := c.verifier.Parse(sess.AccessToken); err != nil {
			c.logger.WarnContext(ctx, "discarding session with invalid access token",
				"browser_id", c.browserID, "error", err)
			c.clear(ctx)
			return nil, nil
		}
	}

	if !sess.ExpiresWithin(c.clock.Now(), RefreshMargin) {
		return sess, nil
	}

	v, err, _ := c.refresh.Do(c.browserID, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return c.refreshSession(rctx, sess.RefreshToken)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (c *BrowserClient) refreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		c.clear(ctx)
		return nil, fmt.Errorf("refresh session: %w", sentinel.ErrExpired)
	}
	next, err := c.api.RefreshGrant(ctx, refreshToken)
	if err != nil {
		if !refreshRejected(err) {
			c.logger.WarnContext(ctx, "session refresh failed, keeping session",
				"browser_id", c.browserID, "error", err)
			return nil, fmt.Errorf("refresh session: %w", err)
		}
		c.logger.InfoContext(ctx, "session refresh rejected, signing out",
			"browser_id", c.browserID, "error", err)
		c.clear(ctx)
		return nil, err
	}
	if err := c.persist(ctx, next, EventTokenRefreshed); err != nil {
		return nil, err
	}
	return next, nil
}

// refreshRejected reports whether the provider refused the refresh token
// itself. Transport failures, 5xx, timeouts and rate limits are retryable.
func refreshRejected(err error) bool {
	pe, ok := AsProviderError(err)
	if !ok || pe.Status < 400 || pe.Status >= 500 {
		return false
	}
	return pe.Status != http.StatusRequestTimeout && pe.Status != http.StatusTooManyRequests
}

func (c *BrowserClient) SignInWithPassword(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	sess, err := c.api.PasswordGrant(ctx, creds)
	if err != nil {
		return nil, err
	}
	if err := c.persist(ctx, sess, EventSignedIn); err != nil {
		return nil, err
	}
	return &AuthResponse{Session: sess, User: sess.User}, nil
}

func (c *BrowserClient) SignUp(ctx context.Context, creds Credentials, opts SignUpOptions) (*AuthResponse, error) {
	resp, err := c.api.SignUp(ctx, creds, opts.EmailRedirectTo)
	if err != nil {
		return nil, err
	}
	if resp.Session != nil {
		if err := c.persist(ctx, resp.Session, EventSignedIn); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

// SignOut revokes the session upstream and always clears it locally. An
// upstream rejection for an already invalid token is not an error.
func (c *BrowserClient) SignOut(ctx context.Context) error {
	sess, err := c.sessions.Load(ctx, c.browserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		c.publish(ctx, AuthEvent{Type: EventSignedOut})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	logoutErr := c.api.Logout(ctx, sess.AccessToken)
	c.clear(ctx)

	if pe, ok := AsProviderError(logoutErr); ok {
		switch pe.Status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return nil
		}
	}
	return logoutErr
}

func (c *BrowserClient) Resend(ctx context.Context, params ResendParams) error {
	return c.api.Resend(ctx, params)
}

// OnAuthStateChange registers handler for this browser. A live persisted
// session is replayed to the new handler as INITIAL_SESSION before returning.
func (c *BrowserClient) OnAuthStateChange(handler AuthStateHandler) Subscription {
	sub := c.bus.Subscribe(c.browserID, handler)

	ctx := context.Background()
	sess, err := c.sessions.Load(ctx, c.browserID)
	if err == nil && !sess.ExpiresWithin(c.clock.Now(), RefreshMargin) {
		handler(AuthEvent{Type: EventInitialSession, Session: sess})
	}
	return sub
}

func (c *BrowserClient) persist(ctx context.Context, sess *Session, event EventType) error {
	if err := c.sessions.Save(ctx, c.browserID, sess); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	c.publish(ctx, AuthEvent{Type: event, Session: sess})
	return nil
}

func (c *BrowserClient) clear(ctx context.Context) {
	if err := c.sessions.Delete(ctx, c.browserID); err != nil {
		c.logger.WarnContext(ctx, "failed to delete session", "browser_id", c.browserID, "error", err)
	}
	c.publish(ctx, AuthEvent{Type: EventSignedOut})
}

func (c *BrowserClient) publish(ctx context.Context, event AuthEvent) {
	if err := c.bus.Publish(ctx, c.browserID, event); err != nil {
		c.logger.WarnContext(ctx, "failed to publish auth event",
			"browser_id", c.browserID, "event", event.Type, "error", err)
	}
}
