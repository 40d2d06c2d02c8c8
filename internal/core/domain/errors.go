// Package domain defines the core domain models for bunda-cli.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorKind is the tag that classifies every error crossing the session core.
type ErrorKind int

const (
	// KindUnknown is any error that is not a *Error.
	KindUnknown ErrorKind = iota
	// KindNetwork means the request never produced an HTTP response.
	KindNetwork
	// KindUnauthorized is an HTTP 401: the bearer token is invalid or expired.
	KindUnauthorized
	// KindServer is an HTTP 5xx.
	KindServer
	// KindValidation is an HTTP 422 carrying field errors.
	KindValidation
	// KindAPI is any other non-2xx response.
	KindAPI
	// KindStorage is a failure of the local key-value storage.
	KindStorage
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindUnauthorized:
		return "unauthorized"
	case KindServer:
		return "server"
	case KindValidation:
		return "validation"
	case KindAPI:
		return "api"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is a classified error with a stable code.
type Error struct {
	Kind    ErrorKind
	Code    string // stable client-side code, e.g. "BD-AUTH-4010"
	Message string // human-readable message (server message when available)
	Status  int    // HTTP status, 0 for network/storage errors

	// ServerCode is the backend's error_code field (e.g. "NAKES_WEB_ONLY").
	ServerCode string
	// Fields holds per-field validation messages for KindValidation.
	Fields map[string][]string

	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil && e.Kind != KindAPI && e.Kind != KindUnauthorized &&
		e.Kind != KindServer && e.Kind != KindValidation {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsUnauthorized reports whether this is a 401.
func (e *Error) IsUnauthorized() bool { return e.Kind == KindUnauthorized }

// IsForbidden reports whether this is a 403.
func (e *Error) IsForbidden() bool { return e.Status == http.StatusForbidden }

// IsNotFound reports whether this is a 404.
func (e *Error) IsNotFound() bool { return e.Status == http.StatusNotFound }

// FieldError returns the first validation message for a field, or "".
func (e *Error) FieldError(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// WithMessage returns a copy of the error with a different message.
func (e *Error) WithMessage(msg string) *Error {
	c := *e
	c.Message = msg
	return &c
}

// Sentinel errors, matched with errors.Is by code.
var (
	ErrNetwork      = &Error{Kind: KindNetwork, Code: "BD-NET-0000", Message: "network request failed"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Code: "BD-AUTH-4010", Message: "unauthenticated", Status: http.StatusUnauthorized}
	ErrServer       = &Error{Kind: KindServer, Code: "BD-SRV-5000", Message: "server error"}
	ErrValidation   = &Error{Kind: KindValidation, Code: "BD-VAL-4220", Message: "validation failed", Status: http.StatusUnprocessableEntity}
	ErrAPI          = &Error{Kind: KindAPI, Code: "BD-API-4000", Message: "request failed"}
	ErrStorage      = &Error{Kind: KindStorage, Code: "BD-STO-0000", Message: "local storage failure"}
)

// defaultErrorMessage is used when the backend's error body cannot be read.
const defaultErrorMessage = "An unexpected error occurred"

// NewAPIError classifies a non-2xx response.
func NewAPIError(status int, body ErrorResponse) *Error {
	var base *Error
	switch {
	case status == http.StatusUnauthorized:
		base = ErrUnauthorized
	case status == http.StatusUnprocessableEntity && len(body.Errors) > 0:
		base = ErrValidation
	case status >= 500:
		base = ErrServer
	default:
		base = ErrAPI
	}

	e := *base
	e.Status = status
	e.Message = body.Message
	if e.Message == "" {
		e.Message = defaultErrorMessage
	}
	e.ServerCode = body.ErrorCode
	e.Fields = body.Errors
	return &e
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(cause error) *Error {
	return ErrNetwork.WithCause(cause)
}

// NewStorageError wraps a local storage failure for the given operation.
func NewStorageError(op string, cause error) *Error {
	return ErrStorage.WithMessage("storage " + op + " failed").WithCause(cause)
}

// KindOf classifies err. Wrapped errors are unwrapped.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsUnauthorized reports whether err is (or wraps) a 401.
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// AsError extracts the *Error from err.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Detail renders err for a terminal: the message followed by one
// indented line per validation field, sorted by field name.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	e, ok := AsError(err)
	if !ok || len(e.Fields) == 0 {
		return err.Error()
	}

	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString(err.Error())
	for _, f := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", f, e.FieldError(f))
	}
	return b.String()
}
