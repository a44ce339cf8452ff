package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so callers can decide whether to degrade or propagate.
type Kind string

const (
	// KindUnauthorized covers missing, expired or badly signed session tokens.
	KindUnauthorized Kind = "unauthorized"

	// KindMalformedToken is a token with a valid signature but missing credential fields.
	KindMalformedToken Kind = "malformed_token"

	// KindUpstream is a failed call to Gmail, the vector index or the LLM.
	KindUpstream Kind = "upstream_failure"

	// KindNotFound is a requested email id that is absent from the cache.
	KindNotFound Kind = "not_found"

	// KindMalformedResponse is an LLM reply that could not be parsed as the expected JSON.
	KindMalformedResponse Kind = "malformed_response"

	// KindInvalidRequest is a request that failed parameter validation.
	KindInvalidRequest Kind = "invalid_request"
)

// Error is the application error carried across pipeline boundaries
type Error struct {
	Kind    Kind   // Failure classification
	Message string // Human-readable message returned to the caller
	Err     error  // Underlying cause, may be nil
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
// This lets callers write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// Status maps the error kind to an HTTP status code.
func (e *Error) Status() int {
	return StatusFor(e.Kind)
}

// StatusFor maps a kind to an HTTP status code.
func StatusFor(kind Kind) int {
	switch kind {
	case KindUnauthorized, KindMalformedToken:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindUpstream, KindMalformedResponse:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new application error
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new application error around a cause
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinel values usable with errors.Is
var (
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrMalformedToken    = &Error{Kind: KindMalformedToken}
	ErrUpstream          = &Error{Kind: KindUpstream}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
	ErrInvalidRequest    = &Error{Kind: KindInvalidRequest}
)

// Upstream wraps a failed external call
func Upstream(message string, err error) *Error {
	return Wrap(KindUpstream, message, err)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string, err error) *Error {
	return Wrap(KindUnauthorized, message, err)
}

// NotFound creates a not-found error
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// InvalidRequest creates a validation error
func InvalidRequest(message string) *Error {
	return New(KindInvalidRequest, message)
}

// KindOf returns the kind of err, or KindUpstream when err carries no kind.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUpstream
}

// MessageOf returns the caller-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
