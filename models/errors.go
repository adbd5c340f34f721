// ABOUTME: Error taxonomy shared by the store, coordinator and transports
// ABOUTME: Kinds are matched with errors.Is against the exported sentinels
package models

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindTransport
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

var (
	ErrValidation   = &Error{Kind: KindValidation, Message: "invalid input"}
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "not found"}
	ErrTransport    = &Error{Kind: KindTransport, Message: "transport failure"}
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Message: "unauthorized"}
)

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any Error of the same kind, so callers can test against the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Validationf reports bad input detected before any store call.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports a missing entity.
func NotFound(collection string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", collection, id)}
}

// Transport wraps a failed backing-store call.
func Transport(op string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: "request failed", Err: err}
}

// Unauthorized reports a missing or rejected credential.
func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// KindOf classifies err. Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
