package identity

import (
	"errors"
	"fmt"
)

// ProviderError is a rejection returned by the identity provider. Message is
// the provider's own text and is safe to show to the user.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity provider: %d: %s", e.Status, e.Message)
}

// AsProviderError unwraps err to a ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ProviderMessage returns the provider's message, or "" if err is not a
// provider rejection or the provider sent no text.
func ProviderMessage(err error) string {
	if pe, ok := AsProviderError(err); ok {
		return pe.Message
	}
	return ""
}
