package oauth2client

import (
	"errors"
	"fmt"
)

// Sentinel errors for classifying failures with errors.Is.
var (
	ErrConfiguration        = errors.New("oauth2client: invalid configuration")
	ErrTransport            = errors.New("oauth2client: token request failed")
	ErrResponseShape        = errors.New("oauth2client: unexpected token response")
	ErrUnsupportedTokenType = errors.New("oauth2client: unsupported token type")
)

// ConfigurationError reports a missing or malformed configuration field.
// It is returned before any network activity.
type ConfigurationError struct {
	// Field is the offending field, e.g. "clientId" or "tokenURL".
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("oauth2client: %s %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// TransportError reports that the token request could not be sent or that
// no response was received.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("oauth2client: token request to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ResponseShapeError reports a token response whose body is not a JSON
// object or lacks a usable access_token.
type ResponseShapeError struct {
	// StatusCode is the HTTP status of the token response.
	StatusCode int

	// ErrorCode is the RFC 6749 section 5.2 "error" value, if the endpoint sent one.
	ErrorCode        string
	ErrorDescription string

	Reason string
}

func (e *ResponseShapeError) Error() string {
	msg := fmt.Sprintf("oauth2client: unexpected token response (status %d): %s", e.StatusCode, e.Reason)
	if e.ErrorCode != "" {
		msg += fmt.Sprintf(" (error %q", e.ErrorCode)
		if e.ErrorDescription != "" {
			msg += fmt.Sprintf(": %s", e.ErrorDescription)
		}
		msg += ")"
	}
	return msg
}

// Is reports whether target is ErrResponseShape.
func (e *ResponseShapeError) Is(target error) bool {
	return target == ErrResponseShape
}

// UnsupportedTokenTypeError reports a token_type other than "bearer".
type UnsupportedTokenTypeError struct {
	TokenType string
}

func (e *UnsupportedTokenTypeError) Error() string {
	return fmt.Sprintf("oauth2client: only token_type bearer is supported, got %q", e.TokenType)
}

// Is reports whether target is ErrUnsupportedTokenType.
func (e *UnsupportedTokenTypeError) Is(target error) bool {
	return target == ErrUnsupportedTokenType
}
