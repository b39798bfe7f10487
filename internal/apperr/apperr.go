// Package apperr defines the error kinds the HTTP layer translates into
// status codes. Message is safe to show to callers; Err carries the
// internal cause and is only ever logged.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nhle/buildfast/internal/store"
)

// Kind classifies an application error.
type Kind string

const (
	KindUnauthorized Kind = "UNAUTHORIZED"
	KindValidation   Kind = "VALIDATION"
	KindNotFound     Kind = "NOT_FOUND"
	KindRateLimited  Kind = "RATE_LIMITED"
	KindInternal     Kind = "INTERNAL"
)

// Issue is one itemised validation failure. Path names the offending field.
type Issue struct {
	Code    string `json:"code"`
	Path    []any  `json:"path"`
	Message string `json:"message"`
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Message string
	Issues  []Issue
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func Unauthorized() *Error {
	return &Error{Kind: KindUnauthorized, Message: "Unauthorized"}
}

// Validation builds a validation error from one or more issues.
func Validation(issues ...Issue) *Error {
	msg := "Invalid request"
	if len(issues) > 0 {
		msg = issues[0].Message
	}
	return &Error{Kind: KindValidation, Message: msg, Issues: issues}
}

// Invalid is shorthand for a single-field validation failure.
func Invalid(field, code, message string) *Error {
	return Validation(Issue{Code: code, Path: []any{field}, Message: message})
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func RateLimited(message string) *Error {
	return &Error{Kind: KindRateLimited, Message: message}
}

// Internal wraps an unexpected failure. The cause never reaches the client.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	ae, ok := As(err)
	return ok && ae.Kind == kind
}

// From classifies err. An *Error in the chain is returned as is,
// store.ErrNotFound becomes NotFound(notFound), and anything else is
// Internal.
func From(err error, notFound string) *Error {
	if ae, ok := As(err); ok {
		return ae
	}
	if errors.Is(err, store.ErrNotFound) {
		return &Error{Kind: KindNotFound, Message: notFound, Err: err}
	}
	return Internal(err)
}
