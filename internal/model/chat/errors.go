package chat

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies pipeline failures for callers deciding on retries.
type Kind string

const (
	// KindInvalidRequest is client-caused; retrying unchanged cannot help.
	KindInvalidRequest Kind = "INVALID_REQUEST"
	// KindUpstreamTimeout means the generator missed the request deadline.
	KindUpstreamTimeout Kind = "UPSTREAM_TIMEOUT"
	// KindUpstreamError covers generator failures other than timeouts.
	KindUpstreamError Kind = "UPSTREAM_ERROR"
	// KindInternal is everything the taxonomy does not name.
	KindInternal Kind = "INTERNAL"
)

// Error is the typed failure surfaced by the orchestrator. History and
// retrieval degradations never become an Error; only validation and
// generator-stage failures do.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the taxonomy onto response codes.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUpstreamTimeout:
		return http.StatusGatewayTimeout
	case KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrInvalidRequest builds a validation failure.
func ErrInvalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: message}
}

// ErrUpstreamTimeout wraps a generator deadline miss.
func ErrUpstreamTimeout(err error) *Error {
	return &Error{Kind: KindUpstreamTimeout, Message: "answer generation exceeded the request deadline", Err: err}
}

// ErrUpstreamError wraps a non-timeout generator failure.
func ErrUpstreamError(err error) *Error {
	return &Error{Kind: KindUpstreamError, Message: "answer generation failed", Err: err}
}

// KindOf extracts the Kind from any error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}
