package authform

import "encoding/gob"

// View names the visible tab of the auth page.
type View string

const (
	ViewLogin  View = "login"
	ViewSignup View = "signup"
)

// ParseView maps the ?view= query value; anything but "signup" is login.
func ParseView(s string) View {
	if s == string(ViewSignup) {
		return ViewSignup
	}
	return ViewLogin
}

type StatusKind string

const (
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// ResendStatus is the outcome of the latest confirmation resend.
type ResendStatus struct {
	Kind    StatusKind
	Message string
}

// FormState is everything the auth page renders beyond the static markup.
// It lives in the browser's cookie session between the post and the
// following GET.
type FormState struct {
	ActiveView      View
	LoginEmail      string
	SignupEmail     string
	LoginError      string
	SignupMessage   string
	SignupSucceeded bool
	PendingEmail    string
	Resend          *ResendStatus
	FieldErrors     FieldErrors
}

// NewFormState starts a page on the given view.
func NewFormState(view View) FormState {
	return FormState{ActiveView: view}
}

// CanResend reports whether the resend action is offered.
func (s FormState) CanResend() bool {
	return s.SignupSucceeded && s.PendingEmail != ""
}

func init() {
	gob.Register(FormState{})
	gob.Register(FieldErrors{})
	gob.Register(&ResendStatus{})
}
