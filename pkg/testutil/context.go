package testutil

import (
	"net/http"

	"pointer/pkg/requestcontext"
)

// WithBrowserID simulates the browser cookie middleware for handler tests.
func WithBrowserID(req *http.Request, browserID string) *http.Request {
	return req.WithContext(requestcontext.WithBrowserID(req.Context(), browserID))
}

// WithRequestID tags the request the way the request ID middleware would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
