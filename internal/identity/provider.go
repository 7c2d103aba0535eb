package identity

import "context"

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Provider

// Provider is the contract the session layer and the auth forms depend on.
// Each instance is scoped to a single browser context.
type Provider interface {
	// GetSession returns the current session or nil. Errors mean the provider
	// could not be consulted; callers treat them as "no session".
	GetSession(ctx context.Context) (*Session, error)
	SignInWithPassword(ctx context.Context, creds Credentials) (*AuthResponse, error)
	SignUp(ctx context.Context, creds Credentials, opts SignUpOptions) (*AuthResponse, error)
	SignOut(ctx context.Context) error
	Resend(ctx context.Context, params ResendParams) error
	OnAuthStateChange(handler AuthStateHandler) Subscription
}
