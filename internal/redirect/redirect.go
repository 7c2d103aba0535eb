// Package redirect decides where a navigation should land depending on
// whether the browser has an authenticated session.
package redirect

import (
	"context"

	"pointer/internal/identity"
	"pointer/internal/platform/metrics"
	"pointer/internal/session"
)

const (
	ProfileRoute     = "/profile"
	DefaultAuthRoute = "/auth?view=signup"
	LoginRoute       = "/auth?view=login"
)

// SessionSource is the part of a session Provider the service reads.
type SessionSource interface {
	State() session.State
	Refresh(ctx context.Context) *identity.Session
}

// Options override the targets; empty fields use the service defaults.
type Options struct {
	UnauthenticatedTarget string
	AuthenticatedTarget   string
}

type Service struct {
	authenticatedDefault   string
	unauthenticatedDefault string
	metrics                *metrics.Metrics
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithUnauthenticatedDefault replaces /auth?view=signup as the fallback target.
func WithUnauthenticatedDefault(target string) Option {
	return func(s *Service) {
		if target != "" {
			s.unauthenticatedDefault = target
		}
	}
}

func NewService(opts ...Option) *Service {
	s := &Service{
		authenticatedDefault:   ProfileRoute,
		unauthenticatedDefault: DefaultAuthRoute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Redirect returns the authenticated target when a user is cached, without
// consulting the provider. Otherwise it refreshes once; a failed refresh
// counts as signed out.
func (s *Service) Redirect(ctx context.Context, src SessionSource, opts *Options) string {
	authed, unauthed := s.targets(opts)

	if src.State().User != nil {
		s.metrics.IncRedirectDecision("cached")
		return authed
	}
	if sess := src.Refresh(ctx); sess != nil {
		s.metrics.IncRedirectDecision("refreshed")
		return authed
	}
	s.metrics.IncRedirectDecision("anonymous")
	return unauthed
}

// IsAuthenticated reports the cached state only.
func (s *Service) IsAuthenticated(src SessionSource) bool {
	return src.State().User != nil
}

func (s *Service) targets(opts *Options) (authed, unauthed string) {
	authed, unauthed = s.authenticatedDefault, s.unauthenticatedDefault
	if opts == nil {
		return authed, unauthed
	}
	if opts.AuthenticatedTarget != "" {
		authed = opts.AuthenticatedTarget
	}
	if opts.UnauthenticatedTarget != "" {
		unauthed = opts.UnauthenticatedTarget
	}
	return authed, unauthed
}
