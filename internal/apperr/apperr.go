// Package apperr defines the closed error taxonomy returned by the download flow.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure. The set is closed; add sparingly.
type Kind uint8

// Possible values for Kind
const (
	KindUnexpected Kind = iota
	KindUnauthenticated
	KindDenied
	KindBadRequest
	KindInvalidPath
	KindNotFound
	KindMethodNotAllowed
	KindStorage
)

// String returns a stable label, used for logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindDenied:
		return "denied"
	case KindBadRequest:
		return "bad_request"
	case KindInvalidPath:
		return "invalid_path"
	case KindNotFound:
		return "not_found"
	case KindMethodNotAllowed:
		return "method_not_allowed"
	case KindStorage:
		return "storage_error"
	default:
		return "unexpected"
	}
}

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindDenied:
		return http.StatusForbidden
	case KindBadRequest, KindInvalidPath:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified failure. Msg is shown to the caller; Fields are
// extra diagnostic values merged into the JSON body. Neither may carry secrets.
type Error struct {
	Kind   Kind
	Msg    string
	Fields map[string]any
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// With returns a copy of e carrying an extra diagnostic field.
func (e *Error) With(key string, v any) *Error {
	cp := *e
	cp.Fields = make(map[string]any, len(e.Fields)+1)
	for k, fv := range e.Fields {
		cp.Fields[k] = fv
	}
	cp.Fields[key] = v
	return &cp
}

// Body returns the JSON payload for the error: an "error" message plus any fields.
func (e *Error) Body() map[string]any {
	body := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		body[k] = v
	}
	body["error"] = e.Msg
	return body
}

// New builds an Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Unauthenticated reports a missing or invalid credential proof.
func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }

// Denied reports a valid credential without sufficient privilege.
func Denied(msg string) *Error { return New(KindDenied, msg) }

// BadRequest reports malformed client input.
func BadRequest(msg string) *Error { return New(KindBadRequest, msg) }

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindUnexpected for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnexpected
}

// From classifies any error. Unclassified errors become KindUnexpected with a
// generic message; the cause is kept for logging only.
func From(err error) *Error {
	if e, ok := As(err); ok {
		return e
	}
	return Wrap(KindUnexpected, "Internal server error", err)
}
