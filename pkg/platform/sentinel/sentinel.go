package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, provider clients and other
// infrastructure layers return these (optionally wrapped) so services can
// translate them into domain errors or UI state.
//
// - ErrNotFound: nothing is persisted under the requested key
// - ErrExpired: a session or token is past its validity window
// - ErrInvalidState: component used outside its lifecycle (e.g. mounted twice)
// - ErrUnavailable: backing service or resource temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrExpired      = errors.New("expired")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
