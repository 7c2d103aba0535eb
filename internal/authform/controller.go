// Package authform validates the sign-in and sign-up forms, calls the
// identity provider and maps every outcome to page state. No error escapes
// a controller method; failures become messages in FormState.
package authform

import (
	"context"
	"log/slog"
	"strings"

	"pointer/internal/audit"
	"pointer/internal/identity"
	"pointer/internal/platform/metrics"
)

const (
	MsgSignInFailed      = "Unable to sign in. Please try again."
	MsgSignInUnexpected  = "Unexpected error signing in."
	MsgSignUpFailed      = "Sign up failed. Please try again."
	MsgSignUpUnexpected  = "Unexpected error signing up."
	MsgSignUpPending     = "Sign-up successful. Please check your inbox to confirm before signing in."
	MsgResendSent        = "Confirmation email resent. Please check your inbox (and spam folder)."
	MsgResendFailed      = "Unable to resend the confirmation email. Please try again later."
	MsgResendUnexpected  = "Unexpected error resending confirmation email."
	profileRoute         = "/profile"
	homeRoute            = "/"
	loginConfirmationURL = "/auth?view=login"
)

// Emitter records audit events.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Result is the page state after an action and, when non-empty, where the
// browser should be sent next.
type Result struct {
	State    FormState
	Redirect string
}

type Controller struct {
	siteURL string
	audit   Emitter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type Option func(*Controller)

func WithAudit(e Emitter) Option {
	return func(c *Controller) { c.audit = e }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController builds a controller. siteURL is the public origin used for
// the confirmation link, e.g. https://pointer.example.
func NewController(siteURL string, opts ...Option) *Controller {
	c := &Controller{
		siteURL: strings.TrimRight(siteURL, "/"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EmailRedirectTo is the link target embedded in confirmation emails.
func (c *Controller) EmailRedirectTo() string {
	return c.siteURL + loginConfirmationURL
}

func (c *Controller) SignIn(ctx context.Context, p identity.Provider, st FormState, v Values) Result {
	st.ActiveView = ViewLogin
	st.LoginEmail = v[FieldEmail]
	if errs := SignInRules.Validate(v); errs != nil {
		st.FieldErrors = errs
		c.record(ctx, audit.Event{Action: audit.ActionSignIn, Outcome: audit.OutcomeInvalid, Email: v[FieldEmail]})
		return Result{State: st}
	}

	st.FieldErrors = nil
	st.LoginError = ""
	st.SignupMessage = ""
	st.SignupSucceeded = false
	st.Resend = nil
	st.PendingEmail = ""

	resp, err := p.SignInWithPassword(ctx, identity.Credentials{Email: v[FieldEmail], Password: v[FieldPassword]})
	if err != nil {
		msg, outcome := c.failure(ctx, err, MsgSignInFailed, MsgSignInUnexpected)
		st.LoginError = msg
		c.record(ctx, audit.Event{Action: audit.ActionSignIn, Outcome: outcome, Email: v[FieldEmail]})
		return Result{State: st}
	}

	c.record(ctx, audit.Event{Action: audit.ActionSignIn, Outcome: audit.OutcomeSuccess, Email: v[FieldEmail], UserID: userID(resp)})
	return Result{State: NewFormState(ViewLogin), Redirect: profileRoute}
}

func (c *Controller) SignUp(ctx context.Context, p identity.Provider, st FormState, v Values) Result {
	st.ActiveView = ViewSignup
	st.SignupEmail = v[FieldEmail]
	if errs := SignUpRules.Validate(v); errs != nil {
		st.FieldErrors = errs
		c.record(ctx, audit.Event{Action: audit.ActionSignUp, Outcome: audit.OutcomeInvalid, Email: v[FieldEmail]})
		return Result{State: st}
	}

	st.FieldErrors = nil
	st.SignupMessage = ""
	st.SignupSucceeded = false
	st.Resend = nil
	st.PendingEmail = ""

	email := v[FieldEmail]
	resp, err := p.SignUp(ctx,
		identity.Credentials{Email: email, Password: v[FieldPassword]},
		identity.SignUpOptions{EmailRedirectTo: c.EmailRedirectTo()},
	)
	if err != nil {
		msg, outcome := c.failure(ctx, err, MsgSignUpFailed, MsgSignUpUnexpected)
		st.SignupMessage = msg
		c.record(ctx, audit.Event{Action: audit.ActionSignUp, Outcome: outcome, Email: email})
		return Result{State: st}
	}

	if resp != nil && resp.Session != nil {
		c.record(ctx, audit.Event{Action: audit.ActionSignUp, Outcome: audit.OutcomeSuccess, Email: email, UserID: userID(resp)})
		return Result{State: NewFormState(ViewLogin), Redirect: profileRoute}
	}

	c.record(ctx, audit.Event{Action: audit.ActionSignUp, Outcome: audit.OutcomePending, Email: email, UserID: userID(resp)})
	st.PendingEmail = email
	st.SignupMessage = MsgSignUpPending
	st.SignupSucceeded = true
	st.ActiveView = ViewLogin
	st.LoginEmail = email
	return Result{State: st}
}

// Resend re-sends the confirmation email for the pending sign-up. Without a
// pending email it leaves the state untouched.
func (c *Controller) Resend(ctx context.Context, p identity.Provider, st FormState) Result {
	if st.PendingEmail == "" {
		return Result{State: st}
	}

	st.Resend = nil
	err := p.Resend(ctx, identity.ResendParams{Type: identity.ResendTypeSignup, Email: st.PendingEmail})
	if err != nil {
		msg, outcome := c.failure(ctx, err, MsgResendFailed, MsgResendUnexpected)
		st.Resend = &ResendStatus{Kind: StatusError, Message: msg}
		c.record(ctx, audit.Event{Action: audit.ActionResend, Outcome: outcome, Email: st.PendingEmail})
		return Result{State: st}
	}

	st.Resend = &ResendStatus{Kind: StatusSuccess, Message: MsgResendSent}
	c.record(ctx, audit.Event{Action: audit.ActionResend, Outcome: audit.OutcomeSuccess, Email: st.PendingEmail})
	return Result{State: st}
}

// SignOut ends the session and always sends the browser home.
func (c *Controller) SignOut(ctx context.Context, p identity.Provider, user *identity.User) string {
	ev := audit.Event{Action: audit.ActionSignOut, Outcome: audit.OutcomeSuccess}
	if user != nil {
		ev.UserID, ev.Email = user.ID, user.Email
	}
	if err := p.SignOut(ctx); err != nil {
		c.logger.WarnContext(ctx, "sign out failed", "error", err)
		ev.Outcome = audit.OutcomeError
	}
	c.record(ctx, ev)
	return homeRoute
}

// failure maps err to a display message. A provider rejection shows the
// provider's text; anything else is an unexpected error.
func (c *Controller) failure(ctx context.Context, err error, rejected, unexpected string) (string, audit.Outcome) {
	if pe, ok := identity.AsProviderError(err); ok {
		if pe.Message == "" {
			return rejected, audit.OutcomeRejected
		}
		return pe.Message, audit.OutcomeRejected
	}
	c.logger.ErrorContext(ctx, "identity provider call failed", "error", err)
	return unexpected, audit.OutcomeError
}

func (c *Controller) record(ctx context.Context, ev audit.Event) {
	c.metrics.IncAuthAttempt(string(ev.Action), string(ev.Outcome))
	if c.audit == nil {
		return
	}
	if err := c.audit.Emit(ctx, ev); err != nil {
		c.logger.WarnContext(ctx, "audit emit failed", "action", ev.Action, "error", err)
	}
}

func userID(resp *identity.AuthResponse) string {
	switch {
	case resp == nil:
		return ""
	case resp.User != nil:
		return resp.User.ID
	case resp.Session != nil && resp.Session.User != nil:
		return resp.Session.User.ID
	}
	return ""
}
