package audit

import (
	"context"
	"time"
)

// Event is an append-only record of an authentication action taken from a
// browser. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	BrowserID string    `json:"browser_id"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Action    Action    `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	Device    string    `json:"device,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

type Action string

const (
	ActionSignIn  Action = "sign_in"
	ActionSignUp  Action = "sign_up"
	ActionSignOut Action = "sign_out"
	ActionResend  Action = "resend_confirmation"
)

type Outcome string

const (
	// OutcomeSuccess: the provider accepted the request.
	OutcomeSuccess Outcome = "success"
	// OutcomePending: sign-up accepted, email confirmation outstanding.
	OutcomePending Outcome = "pending_confirmation"
	// OutcomeInvalid: rejected by form validation, provider never called.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeRejected: the provider refused with a message.
	OutcomeRejected Outcome = "rejected"
	// OutcomeError: the provider could not be reached or answered garbage.
	OutcomeError Outcome = "error"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}
