package shared

import (
	"errors"
	"fmt"
)

// ErrorKind classifies business and infrastructure failures so callers can
// map them uniformly at the command boundary.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindInvalidTransition   ErrorKind = "INVALID_TRANSITION"
	KindAlreadyMatched      ErrorKind = "ALREADY_MATCHED"
	KindMissingLinkage      ErrorKind = "MISSING_LINKAGE"
	KindConfiguration       ErrorKind = "CONFIGURATION"
	KindConcurrencyConflict ErrorKind = "CONCURRENCY_CONFLICT"
	KindPersistence         ErrorKind = "PERSISTENCE"
)

// Error carries a kind alongside the message. Business failures stay inside
// the command boundary; only the kind and message cross it.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError builds a typed error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// ValidationError flags malformed or missing input.
func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError flags an absent referenced entity.
func NotFoundError(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

// InvalidTransitionError flags a state machine violation.
func InvalidTransitionError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

// AlreadyMatchedError flags a repeated match on a settled invoice.
func AlreadyMatchedError() *Error {
	return &Error{Kind: KindAlreadyMatched, Message: "invoice already matched"}
}

// MissingLinkageError flags an unmet matching prerequisite.
func MissingLinkageError(message string) *Error {
	return &Error{Kind: KindMissingLinkage, Message: message}
}

// ConfigurationError flags a gap in the workflow rule set.
func ConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// ConcurrencyConflictError flags a lost race on a transition.
func ConcurrencyConflictError(message string) *Error {
	return &Error{Kind: KindConcurrencyConflict, Message: message}
}

// PersistenceError wraps a storage failure. The cause is retained for logs
// but never serialized to callers.
func PersistenceError(cause error) *Error {
	return &Error{Kind: KindPersistence, Message: "storage operation failed", cause: cause}
}

// KindOf extracts the kind from err, defaulting to KindPersistence for
// untyped errors so raw storage internals never leak.
func KindOf(err error) ErrorKind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindPersistence
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// UserSafeMessage returns a message that may be shown to callers. Persistence
// failures are replaced with a generic message.
func UserSafeMessage(err error) string {
	var typed *Error
	if errors.As(err, &typed) && typed.Kind != KindPersistence {
		return typed.Message
	}
	return "internal error, please retry"
}
