// Package errs defines the single error taxonomy used across μNet's core
// subsystems (store, policy, poller, slicer). Every error the core returns is
// an *Error carrying a Kind, the operation that raised it, and structured
// context; nothing is returned as a pre-formatted string.
package errs

import (
	"fmt"
	"maps"
)

// Kind identifies the class of failure.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindAlreadyExists        Kind = "already_exists"
	KindValidation           Kind = "validation"
	KindReferentialIntegrity Kind = "referential_integrity"
	KindConflict             Kind = "conflict"
	KindParseError           Kind = "parse_error"
	KindTypeMismatch         Kind = "type_mismatch"
	KindInvalidRegex         Kind = "invalid_regex"
	KindInvalidTarget        Kind = "invalid_target"
	KindPathOverflow         Kind = "path_overflow"
	KindTimeout              Kind = "timeout"
	KindUnreachable          Kind = "unreachable"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindProtocolError        Kind = "protocol_error"
	KindIO                   Kind = "io"
	KindInternal             Kind = "internal"
)

// Error is the core's single error sum type. Op is a short dotted path
// identifying the failing operation (e.g. "store.node.create",
// "policy.eval.compare"). Context holds structured key-value detail
// (entity ids, field paths, source spans) for callers to format as they see
// fit; the core never pre-formats a message for display.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error

	context map[string]any
}

func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// With returns a copy of e with an additional context entry. Errors are
// immutable once constructed; With never mutates the receiver.
func (e *Error) With(key string, value any) *Error {
	cloned := maps.Clone(e.context)
	if cloned == nil {
		cloned = make(map[string]any, 1)
	}
	cloned[key] = value
	return &Error{
		Kind:    e.Kind,
		Op:      e.Op,
		Message: e.Message,
		Cause:   e.Cause,
		context: cloned,
	}
}

// Context returns a defensive copy of the structured context attached via With.
func (e *Error) Context() map[string]any {
	return maps.Clone(e.context)
}

// Is reports whether target is an *Error with the same Kind, so callers can
// use errors.Is(err, errs.New(errs.KindNotFound, "", "")) loosely, but the
// idiomatic check is Kind-based via errors.As + KindOf.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error, else
// returns KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// as is a tiny local errors.As to avoid importing "errors" just for this,
// kept here so KindOf has no surprising side effects on wrapped non-*Error
// chains.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
