// Package errs defines the failure kinds surfaced by domain services.
// Handlers map kinds to transport status codes; nothing should branch on
// error message text.
package errs

import "fmt"

// Kind classifies a service failure.
type Kind string

const (
	// KindUnauthenticated marks a missing, invalid, or expired credential.
	KindUnauthenticated Kind = "unauthenticated"
	// KindDenied marks an authorization rule failure; the message carries the rule's reason.
	KindDenied Kind = "denied"
	// KindNotFound marks an absent entity.
	KindNotFound Kind = "not_found"
	// KindConflict marks a uniqueness or state conflict (duplicate email, already a member).
	KindConflict Kind = "conflict"
	// KindInvalid marks malformed input, rejected before any persistence access.
	KindInvalid Kind = "invalid"
	// KindInternal marks an unexpected store or infrastructure failure.
	KindInternal Kind = "internal"
)

// Error is a service failure with a machine-checkable kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Unauthenticated returns a KindUnauthenticated error.
func Unauthenticated(msg string) *Error { return &Error{Kind: KindUnauthenticated, Message: msg} }

// Denied returns a KindDenied error carrying the authorization reason.
func Denied(reason string) *Error { return &Error{Kind: KindDenied, Message: reason} }

// NotFound returns a KindNotFound error.
func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }

// Conflict returns a KindConflict error.
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }

// Invalid returns a KindInvalid error.
func Invalid(msg string) *Error { return &Error{Kind: KindInvalid, Message: msg} }

// Internal wraps an unexpected failure (store error, signing failure).
func Internal(msg string, err error) *Error { return &Error{Kind: KindInternal, Message: msg, Err: err} }

// KindOf returns the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
