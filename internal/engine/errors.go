package engine

import (
	"errors"
	"fmt"
)

// Kind categorizes operation failures. Kinds are uniform across all
// engine operations and map 1:1 to transport error responses.
type Kind string

const (
	// KindNotFound indicates a referenced entity is absent.
	KindNotFound Kind = "NOT_FOUND"

	// KindBadRequest indicates structurally mismatched references,
	// e.g. an answer/question/project triple that doesn't line up.
	KindBadRequest Kind = "BAD_REQUEST"

	// KindForbidden indicates the principal is authenticated but not
	// authorized for the operation.
	KindForbidden Kind = "FORBIDDEN"

	// KindUnauthenticated indicates no principal was supplied.
	KindUnauthenticated Kind = "UNAUTHENTICATED"

	// KindInvalid indicates a well-formed request that violates a
	// business precondition: closed question, missing required field,
	// wrong transition target, insufficient answers.
	KindInvalid Kind = "INVALID"

	// KindInternal indicates a store failure.
	KindInternal Kind = "INTERNAL"
)

// Error is the tagged failure result of an engine operation.
//
// Access-resolver failures are passed through by every caller unchanged
// (no re-wrapping), so the Op of a Forbidden error names the resolver,
// not the operation that invoked it.
type Error struct {
	Kind    Kind
	Op      string // operation that produced the error, e.g. "CreateAnswer"
	Message string
	Err     error // underlying cause (store errors), optional
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from an error. Returns KindInternal for
// errors that did not originate from the engine.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// errf creates a tagged error with a formatted message.
func errf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// internalf wraps a store failure as an internal error.
func internalf(op string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}
