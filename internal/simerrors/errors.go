// Package simerrors carries the error-kind taxonomy from spec §7 so the
// HTTP boundary can map failures to status codes without string matching,
// the way the teacher's models.ValidationError carried structured field
// errors instead of bare strings.
package simerrors

import "fmt"

// Kind is one of the four documented error categories.
type Kind string

const (
	NotFound          Kind = "not_found"
	InvalidArgument   Kind = "invalid_argument"
	Conflict          Kind = "conflict"
	PreconditionFailed Kind = "precondition_failed"
)

// Error is a domain error tagged with a Kind, so callers can branch on
// category without parsing the message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New builds a tagged error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Tag returns a short, audit-log-friendly label for the error, e.g.
// "not_found: unknown job".
func (e *Error) Tag() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// As reports whether err carries a Kind, and returns the concrete *Error.
func As(err error) (*Error, bool) {
	se, ok := err.(*Error)
	return se, ok
}
