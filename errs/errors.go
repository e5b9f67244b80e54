// Package errs is the engine's error taxonomy. It mirrors the
// DatabaseError{Code, Message, Cause} shape used for query/exec errors
// elsewhere in this lineage, generalized to the kinds a page-backed
// store can fail with. Every failure is an *Error tagged with a Kind;
// a caller tests the kind with Is, which walks the Unwrap chain, and
// Wrap keeps the underlying error's message in that chain.
package errs

import "github.com/pkg/errors"

// Kind is one of the error taxonomy entries. NotFound is deliberately
// absent: a predicate matching nothing is a successful empty result,
// never an error (GetRow returns a fail handle, Select returns an
// empty table).
type Kind int

const (
	KindIO Kind = iota
	KindAlloc
	KindInvalidHandle
	KindSchema
	KindType
	KindNameCollision
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindAlloc:
		return "alloc"
	case KindInvalidHandle:
		return "invalid_handle"
	case KindSchema:
		return "schema"
	case KindType:
		return "type"
	case KindNameCollision:
		return "name_collision"
	default:
		return "unknown"
	}
}

// Error is a taxonomy-tagged error. Unwrap returns the underlying
// error (if any) so the standard errors.Is / errors.As chain walks
// through it.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a taxonomy error with no underlying cause.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a taxonomy kind to an underlying error, prefixing the
// cause with message via pkg/errors' WithMessage. No stack trace is
// recorded, and %+v on the result prints the same text as Error().
func Wrap(kind Kind, cause error, message string) error {
	if cause == nil {
		return New(kind, message)
	}
	return &Error{Kind: kind, Message: message, cause: errors.WithMessage(cause, message)}
}

// Is reports whether err (or anything it wraps) carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		err = errors.Unwrap(err)
	}
	return e != nil && e.Kind == kind
}
