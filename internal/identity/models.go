package identity

import (
	"strings"
	"time"
)

// Session is the token bundle issued by the identity provider. Sessions are
// replaced wholesale on refresh and never mutated in place.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// ExpiresWithin reports whether the access token expires before now+margin.
// A session without an expiry is treated as not expiring.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt == 0 {
		return false
	}
	return !now.Add(margin).Before(time.Unix(s.ExpiresAt, 0))
}

type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
}

// DisplayName prefers user_metadata.full_name, then the email local part.
func (u *User) DisplayName() string {
	if u == nil {
		return "User"
	}
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		if name = strings.TrimSpace(name); name != "" {
			return name
		}
	}
	if local, _, _ := strings.Cut(u.Email, "@"); local != "" {
		return local
	}
	return "User"
}

// Confirmed reports whether the user's email has been verified.
func (u *User) Confirmed() bool {
	return u != nil && u.EmailConfirmedAt != nil
}

// Credentials for password sign-in and sign-up.
type Credentials struct {
	Email    string
	Password string
}

type SignUpOptions struct {
	EmailRedirectTo string
}

// ResendParams names the email to re-send. Type is "signup" for confirmation mail.
type ResendParams struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

const ResendTypeSignup = "signup"

// AuthResponse carries the outcome of sign-in or sign-up. Session is nil when
// the provider requires email confirmation first.
type AuthResponse struct {
	Session *Session
	User    *User
}

type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// AuthEvent is pushed to subscribers whenever the session of a browser changes.
type AuthEvent struct {
	Type    EventType `json:"type"`
	Session *Session  `json:"session"`
}

type AuthStateHandler func(AuthEvent)

// Subscription is returned by OnAuthStateChange.
type Subscription interface {
	Unsubscribe()
}
