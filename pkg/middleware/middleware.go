// Package middleware holds the HTTP middleware of the expenses API:
// request ids, access logging, CORS and request metrics.
package middleware

import (
	"log/slog"
	"net/http"
)

// Stack is an ordered middleware list. The first entry is the outermost
// wrapper and sees the request first.
type Stack []func(http.Handler) http.Handler

// Use appends middleware to the stack.
func (s *Stack) Use(mw ...func(http.Handler) http.Handler) {
	*s = append(*s, mw...)
}

// Then wraps handler with every middleware in the stack.
func (s Stack) Then(handler http.Handler) http.Handler {
	for i := len(s) - 1; i >= 0; i-- {
		handler = s[i](handler)
	}
	return handler
}

// API is the stack mounted in front of the expenses routes. The request id
// comes first so the access log, the CORS exposed headers and the handlers
// all see the same id. Metrics run innermost to observe the matched route
// pattern.
func API(logger *slog.Logger, cors *CORSConfig, metrics *HTTPMetrics) Stack {
	s := Stack{RequestID(), Logger(logger), CORS(cors)}
	if metrics != nil {
		s.Use(metrics.Middleware())
	}
	return s
}
