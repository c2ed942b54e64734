package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/synthwatch/synthwatch/internal/visibility"
)

// Error classifies a backend failure. Every error an adapter returns should
// be an *Error so callers can fold it into probe results without string
// matching.
type Error struct {
	// Kind is the taxonomy class: NETWORK, TIMEOUT, QUERY, or AUTH.
	Kind visibility.ErrorKind

	// Op names the operation that failed, e.g. "nerdgraph.submit".
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Op, e.Message, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error with the given kind and message.
func NewError(kind visibility.ErrorKind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// WrapError wraps an underlying cause with a kind and operation.
func WrapError(kind visibility.ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: "backend call failed", Err: err}
}

// KindOf extracts the taxonomy kind from an error.
//
// Unclassified errors default to NETWORK: an adapter that returns a bare
// error most likely hit a transport problem, and treating it as transient
// keeps the retry loop alive rather than giving up on a mislabel.
// Context errors map to TIMEOUT so a per-probe deadline expiry is
// classified even when the adapter returned ctx.Err() directly.
func KindOf(err error) visibility.ErrorKind {
	if err == nil {
		return visibility.ErrNone
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return visibility.ErrTimeout
	}
	return visibility.ErrNetwork
}

// IsAuth reports whether the error is a fatal credential failure.
func IsAuth(err error) bool {
	return KindOf(err) == visibility.ErrAuth
}

// IsTransient reports whether retrying can plausibly clear the error.
func IsTransient(err error) bool {
	return KindOf(err).Transient()
}
