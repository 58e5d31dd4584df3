package oauth2client

import (
	"context"
	"log"
	"net/http"

	"golang.org/x/oauth2"
)

// Logger is an interface for optional logging of token exchanges.
// Implementations can log successful exchanges if desired; failures are
// only ever returned to the caller.
type Logger interface {
	Printf(format string, args ...any)
}

// Option is a functional option for configuring a grant flow.
type Option func(*settings)

type settings struct {
	logger     Logger
	httpClient *http.Client
}

// WithLogger sets a custom logger for token exchange events.
// If not set, no logging will occur.
func WithLogger(logger Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithLoggingEnabled enables logging using the default Go log package.
// This is a convenience option that sets the logger to log.Default().
func WithLoggingEnabled() Option {
	return func(s *settings) {
		s.logger = log.Default()
	}
}

// WithTokenHTTPClient sets the HTTP client used for the token request.
//
// Without this option the client stored in the context under
// oauth2.HTTPClient is used, falling back to http.DefaultClient.
func WithTokenHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		s.httpClient = client
	}
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// tokenHTTPClient returns the client for the token request.
func (s settings) tokenHTTPClient(ctx context.Context) *http.Client {
	if s.httpClient != nil {
		return s.httpClient
	}
	if c, ok := ctx.Value(oauth2.HTTPClient).(*http.Client); ok && c != nil {
		return c
	}
	return http.DefaultClient
}

func (s settings) logf(format string, args ...any) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
