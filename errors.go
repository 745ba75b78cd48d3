package disorder

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with errors.Is.
var (
	// ErrParse marks a lookup response that could not be decoded.
	ErrParse = errors.New("disorder: malformed lookup response")

	// ErrTransport marks a lookup that failed before a body was received.
	ErrTransport = errors.New("disorder: lookup request failed")

	// ErrNoClient is reported when a Service has no HTTP client or
	// endpoint resolver to look codes up with.
	ErrNoClient = errors.New("disorder: no lookup client configured")
)

// ParseError reports a response body that is not the expected record.
type ParseError struct {
	Code Code
	URL  string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for disorder %s (%s): %v", e.Code, e.URL, e.Err)
}

// Unwrap returns the decoding error.
func (e *ParseError) Unwrap() error { return e.Err }

// Is matches ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// TransportError reports a failed request to the lookup service.
type TransportError struct {
	Code Code
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("data error for disorder %s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("data error for disorder %s (%s): %v", e.Code, e.URL, e.Err)
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error { return e.Err }

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }
