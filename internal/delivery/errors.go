package delivery

import (
	"errors"
	"fmt"

	"github.com/roach88/deliver/internal/ir"
)

// Kind classifies engine errors. Callers branch on the kind, never on the
// concrete error type.
type Kind string

const (
	// KindForbidden: the operation is not permitted in the current state
	// under the delivery's settings. Carries the denied Privilege.
	KindForbidden Kind = "FORBIDDEN"

	// KindNotFound: a session, delivery, event or item key does not resolve.
	KindNotFound Kind = "NOT_FOUND"

	// KindBadPayload: a response submission is malformed.
	KindBadPayload Kind = "BAD_PAYLOAD"

	// KindLogicFault: an engine invariant was violated. Never recoverable.
	KindLogicFault Kind = "LOGIC_FAULT"

	// KindRenderingFailure: a rendering pipeline stage failed.
	KindRenderingFailure Kind = "RENDERING_FAILURE"
)

// Error is the error type returned by every Service operation.
type Error struct {
	Kind      Kind
	Privilege Privilege // set for KindForbidden
	SessionID ir.SessionID
	Message   string
	Err       error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrBadPayload       = &Error{Kind: KindBadPayload}
	ErrLogicFault       = &Error{Kind: KindLogicFault}
	ErrRenderingFailure = &Error{Kind: KindRenderingFailure}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Privilege != "" {
		msg += " " + string(e.Privilege)
	}
	if e.SessionID != 0 {
		msg += fmt.Sprintf(" (session=%d)", e.SessionID)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// holds for every forbidden error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Privilege == "" || t.Privilege == e.Privilege)
}

// KindOf returns the kind of err, or "" if err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PrivilegeOf returns the denied privilege of a forbidden error.
func PrivilegeOf(err error) Privilege {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindForbidden {
		return e.Privilege
	}
	return ""
}

// IsForbidden returns true if the error is a forbidden error.
// Uses errors.As to handle wrapped errors.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsBadPayload returns true if the error is a bad-payload error.
func IsBadPayload(err error) bool { return KindOf(err) == KindBadPayload }

// IsLogicFault returns true if the error is a logic fault.
func IsLogicFault(err error) bool { return KindOf(err) == KindLogicFault }

// IsRenderingFailure returns true if the error is a rendering failure.
func IsRenderingFailure(err error) bool { return KindOf(err) == KindRenderingFailure }

func forbidden(id ir.SessionID, p Privilege) *Error {
	return &Error{Kind: KindForbidden, Privilege: p, SessionID: id}
}

func notFound(id ir.SessionID, format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, SessionID: id, Message: fmt.Sprintf(format, args...)}
}

func badPayload(format string, args ...any) *Error {
	return &Error{Kind: KindBadPayload, Message: fmt.Sprintf(format, args...)}
}

func logicFault(id ir.SessionID, format string, args ...any) *Error {
	return &Error{Kind: KindLogicFault, SessionID: id, Message: fmt.Sprintf(format, args...)}
}

// internal wraps an unexpected collaborator error (store, runtime) as a
// logic fault, keeping the cause.
func internal(id ir.SessionID, what string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindLogicFault, SessionID: id, Message: what, Err: err}
}
