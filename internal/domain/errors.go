package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures coming back from the remote vendors.
type ErrorKind string

// Possible error kinds
const (
	KindAuth       ErrorKind = "auth"
	KindNetwork    ErrorKind = "network"
	KindAPI        ErrorKind = "api"
	KindParse      ErrorKind = "parse"
	KindTimeout    ErrorKind = "timeout"
	KindTaskFailed ErrorKind = "task_failed"
	KindPayment    ErrorKind = "payment"
	KindCancelled  ErrorKind = "cancelled"
)

// Kind sentinels. errors.Is(err, ErrTimeout) matches any *Error of that kind.
var (
	ErrAuth       = &Error{Kind: KindAuth, Message: "authentication failed"}
	ErrNetwork    = &Error{Kind: KindNetwork, Message: "network request failed"}
	ErrAPI        = &Error{Kind: KindAPI, Message: "remote API error"}
	ErrParse      = &Error{Kind: KindParse, Message: "unexpected response body"}
	ErrTimeout    = &Error{Kind: KindTimeout, Message: "generation timed out"}
	ErrTaskFailed = &Error{Kind: KindTaskFailed, Message: "generation task failed"}
	ErrPayment    = &Error{Kind: KindPayment, Message: "insufficient account balance"}
	ErrCancelled  = &Error{Kind: KindCancelled, Message: "task polling cancelled"}
)

// ErrValidation is returned when a domain entity fails validation.
// This is often wrapped with a more specific error message.
var ErrValidation = errors.New("validation failed")

// Error is the typed failure every vendor-facing component returns.
// Error() yields Message verbatim so vendor messages reach the caller intact.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status is the HTTP status code of the failing response, 0 if none.
	Status int
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so the package sentinels act as kind matchers.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates an *Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates an *Error with a formatted message. A %w verb wraps its operand.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Message: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

// HTTPError creates an *Error that carries an HTTP status code.
func HTTPError(kind ErrorKind, status int, message string) *Error {
	return &Error{Kind: kind, Message: message, Status: status}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusOf returns the HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// Hint returns an actionable suggestion for common failure kinds.
func Hint(err error) string {
	switch KindOf(err) {
	case KindAuth:
		return "Check that the API key is correct and still active."
	case KindPayment:
		return "The account balance is insufficient. Top up the vendor account and retry."
	case KindNetwork:
		return "The service could not be reached. Check network connectivity, proxy settings and the configured base URL."
	case KindTimeout:
		return "The image service is busy. Retry in a few minutes."
	case KindParse:
		return "The provider returned an unexpected response. Try another model."
	default:
		return ""
	}
}
