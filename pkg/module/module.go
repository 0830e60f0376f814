package module

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/JaimeStill/tally/pkg/middleware"
)

// ErrInvalidPrefix is returned by New for a prefix that cannot be mounted.
var ErrInvalidPrefix = errors.New("invalid module prefix")

// Module serves an inner router under a single-level path prefix. The
// prefix is stripped before dispatch and the module's middleware wraps the
// router.
type Module struct {
	prefix string
	router http.Handler
	stack  middleware.Stack

	once    sync.Once
	handler http.Handler
}

// New creates a Module mounted at prefix (e.g. "/api"). The prefix usually
// comes from configuration, so a bad one is reported rather than fatal.
func New(prefix string, router http.Handler) (*Module, error) {
	if err := validatePrefix(prefix); err != nil {
		return nil, err
	}
	return &Module{prefix: prefix, router: router}, nil
}

// Handler returns the router wrapped with the module's middleware. The
// chain is built on first use; Use has no effect afterwards.
func (m *Module) Handler() http.Handler {
	m.once.Do(func() {
		m.handler = m.stack.Then(m.router)
	})
	return m.handler
}

// Prefix returns the module's path prefix.
func (m *Module) Prefix() string {
	return m.prefix
}

// Serve strips the prefix from req and dispatches to the wrapped router.
func (m *Module) Serve(w http.ResponseWriter, req *http.Request) {
	m.Handler().ServeHTTP(w, m.strip(req))
}

// Use appends middleware to the module's stack.
func (m *Module) Use(mw ...func(http.Handler) http.Handler) {
	m.stack.Use(mw...)
}

// strip keeps RawPath in step with Path so escaped ids in the remaining
// path (storage keys, file names) survive the prefix removal.
func (m *Module) strip(req *http.Request) *http.Request {
	r := new(http.Request)
	*r = *req
	r.URL = new(url.URL)
	*r.URL = *req.URL

	r.URL.Path = trim(req.URL.Path, m.prefix)
	if req.URL.RawPath != "" {
		r.URL.RawPath = trim(req.URL.RawPath, m.prefix)
	}
	return r
}

func trim(path, prefix string) string {
	if rest := strings.TrimPrefix(path, prefix); rest != "" {
		return rest
	}
	return "/"
}

func validatePrefix(prefix string) error {
	switch {
	case prefix == "":
		return fmt.Errorf("%w: empty", ErrInvalidPrefix)
	case !strings.HasPrefix(prefix, "/"):
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPrefix, prefix)
	case strings.Count(prefix, "/") != 1:
		return fmt.Errorf("%w: %q must be a single path segment", ErrInvalidPrefix, prefix)
	case url.PathEscape(prefix[1:]) != prefix[1:]:
		return fmt.Errorf("%w: %q contains characters that need escaping", ErrInvalidPrefix, prefix)
	}
	return nil
}
