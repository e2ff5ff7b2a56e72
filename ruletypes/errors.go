package ruletypes

import "fmt"

// ErrorKind is the closed set of error kinds the engine can surface,
// per spec.md §7.
type ErrorKind string

const (
	MissingParameters ErrorKind = "MissingParameters"
	ParseError        ErrorKind = "ParseError"
	TypeError         ErrorKind = "TypeError"
	UndefinedVariable ErrorKind = "UndefinedVariable"
	Timeout           ErrorKind = "Timeout"
	RouteNotFound     ErrorKind = "RouteNotFound"
	ConfigurationErr  ErrorKind = "ConfigurationError"
	DuplicateName     ErrorKind = "DuplicateName"
	NotFound          ErrorKind = "NotFound"
	DependencyFailed  ErrorKind = "DependencyFailed"
	Terminated        ErrorKind = "Terminated"
	ShutdownErr       ErrorKind = "Shutdown"
)

// Error is the engine's typed error value. Every error kind flows through
// this type rather than ad-hoc errors.New calls, so callers can switch on
// Kind instead of string-matching messages. Grounded on the teacher's
// types.EngineError (types/error.go), generalized from a single rule-chain
// error struct to the full closed set spec.md §7 enumerates.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error of the given kind wrapping cause.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the Kind of err if it is (or wraps) an *Error, or empty
// string otherwise.
func KindOf(err error) ErrorKind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return ""
}

func asError(err error, target **Error) bool {
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
