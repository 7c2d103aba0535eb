package authform

import (
	"strconv"

	"github.com/asaskevich/govalidator"
)

const (
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
)

const (
	MsgEmailRequired    = "Please enter your email address."
	MsgEmailInvalid     = "Please enter a valid email address."
	MsgPasswordRequired = "Please enter your password."
	MsgPasswordShort    = "Password must be at least 6 characters."
	MsgConfirmRequired  = "Please confirm your password."
	MsgPasswordMismatch = "Passwords do not match."
)

const minPasswordLength = 6

// Values holds submitted form fields. A missing key means the field was not
// submitted at all, which is distinct from an empty value.
type Values map[string]string

// FieldErrors maps a field name to the message shown beside it.
type FieldErrors map[string]string

// Rule fails when Fails reports true for the field's value.
type Rule struct {
	Field   string
	Message string
	Fails   func(value string, present bool, all Values) bool
}

// Rules are evaluated in order; the first failing rule of a field wins.
// CrossField rules run only when every field rule passed.
type Rules struct {
	Field      []Rule
	CrossField []Rule
}

func (rs Rules) Validate(values Values) FieldErrors {
	errs := FieldErrors{}
	for _, r := range rs.Field {
		if _, done := errs[r.Field]; done {
			continue
		}
		v, present := values[r.Field]
		if r.Fails(v, present, values) {
			errs[r.Field] = r.Message
		}
	}
	if len(errs) > 0 {
		return errs
	}
	for _, r := range rs.CrossField {
		if _, done := errs[r.Field]; done {
			continue
		}
		v, present := values[r.Field]
		if r.Fails(v, present, values) {
			errs[r.Field] = r.Message
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func missing(_ string, present bool, _ Values) bool { return !present }

func blank(v string, present bool, _ Values) bool { return !present || v == "" }

func notEmail(v string, _ bool, _ Values) bool { return !govalidator.IsEmail(v) }

func shorterThan(n int) func(string, bool, Values) bool {
	return func(v string, _ bool, _ Values) bool {
		return !govalidator.MinStringLength(v, strconv.Itoa(n))
	}
}

func differsFrom(field string) func(string, bool, Values) bool {
	return func(v string, _ bool, all Values) bool { return v != all[field] }
}

var credentialRules = []Rule{
	{Field: FieldEmail, Message: MsgEmailRequired, Fails: blank},
	{Field: FieldEmail, Message: MsgEmailInvalid, Fails: notEmail},
	{Field: FieldPassword, Message: MsgPasswordRequired, Fails: missing},
	{Field: FieldPassword, Message: MsgPasswordShort, Fails: shorterThan(minPasswordLength)},
}

// SignInRules validates {email, password}.
var SignInRules = Rules{Field: credentialRules}

// SignUpRules validates {email, password, confirmPassword}.
var SignUpRules = Rules{
	Field: append(append([]Rule{}, credentialRules...),
		Rule{Field: FieldConfirmPassword, Message: MsgConfirmRequired, Fails: missing},
		Rule{Field: FieldConfirmPassword, Message: MsgPasswordShort, Fails: shorterThan(minPasswordLength)},
	),
	CrossField: []Rule{
		{Field: FieldConfirmPassword, Message: MsgPasswordMismatch, Fails: differsFrom(FieldPassword)},
	},
}
