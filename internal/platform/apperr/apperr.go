// Package apperr defines the fixed error taxonomy used across repositories,
// adapters, and handlers: Validation (400), NotFound (404), Conflict (409),
// Upstream (502), and MalformedOutput (502, distinct cause). Services return
// these typed errors and the echo error handler translates them into an
// {"error": message} body with the mapped status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation marks missing or malformed required input.
	KindValidation
	// KindNotFound marks an absent referenced entity.
	KindNotFound
	// KindConflict marks a write that collides with existing state.
	KindConflict
	// KindUpstream marks a store or external model transport failure.
	KindUpstream
	// KindMalformedOutput marks a generative-model response that does not
	// match the report schema. Kept separate from KindUpstream because the
	// retry policy differs: transport failures may be retried, malformed
	// output must not be replayed against the same prompt.
	KindMalformedOutput
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindMalformedOutput:
		return "malformed_output"
	default:
		return "unknown"
	}
}

// Error is a tagged failure. Msg is user-visible; Err carries the cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Upstream(msg string, cause error) *Error {
	return &Error{Kind: KindUpstream, Msg: msg, Err: cause}
}

func MalformedOutput(msg string, cause error) *Error {
	return &Error{Kind: KindMalformedOutput, Msg: msg, Err: cause}
}

// KindOf returns the kind of err, or KindUnknown for untyped errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a NotFound error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// Status maps an error kind to its HTTP status code. Untyped errors map to
// 500 so unexpected failures never leak as client errors.
func Status(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream, KindMalformedOutput:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
