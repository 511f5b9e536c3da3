// Package apperrors defines the error kinds shared by the ban/pick core and
// its transports.
//
// Every failure the core reports belongs to exactly one Kind. Callers match
// on a kind with errors.Is(err, apperrors.InvalidState) and on a specific
// failure with errors.Is(err, engine.ErrWrongPhase).
package apperrors

import "errors"

// Kind classifies an error for the operator and for transports.
type Kind string

const (
	// KindConfig marks a missing or malformed persisted resource. It blocks
	// entering gameplay.
	KindConfig Kind = "config"
	// KindCapacity marks a selection attempted beyond its maximum. It is
	// recovered locally as a no-op plus operator feedback.
	KindCapacity Kind = "capacity"
	// KindInvalidState marks a command issued in a phase that does not permit it.
	KindInvalidState Kind = "invalid_state"
	// KindPrecondition marks a command whose inputs are not ready, such as
	// generating a matchup without three picks per side.
	KindPrecondition Kind = "precondition"
	// KindPersistence marks a failed save. In-memory state is unaffected.
	KindPersistence Kind = "persistence"
)

// Kind sentinels for errors.Is matching.
var (
	Config       = &Error{Kind: KindConfig}
	Capacity     = &Error{Kind: KindCapacity}
	InvalidState = &Error{Kind: KindInvalidState}
	Precondition = &Error{Kind: KindPrecondition}
	Persistence  = &Error{Kind: KindPersistence}
)

// Error is a classified error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Cause == nil:
		return string(e.Kind)
	case e.Cause == nil:
		return e.Message
	case e.Message == "":
		return e.Cause.Error()
	default:
		return e.Message + ": " + e.Cause.Error()
	}
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the kind sentinel of e. Specific sentinels
// only match themselves, which errors.Is checks before calling Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
