// Package gittyerr defines the tagged error taxonomy shared by the store,
// the snapshotter and the viewer.
package gittyerr

import "fmt"

// Kind classifies an error the way the FUSE-facing surface and the
// snapshot CLI need to distinguish outcomes.
type Kind int

const (
	// KindNotFound covers an unknown inode, a missing tree entry, or an
	// object absent from the store.
	KindNotFound Kind = iota + 1
	// KindIsDirectory is returned when an operation expecting a file
	// target was given a directory inode.
	KindIsDirectory
	// KindInvalidArgument is returned for an operation/inode-kind
	// mismatch that isn't specifically "is a directory".
	KindInvalidArgument
	// KindIOError wraps an underlying storage failure.
	KindIOError
	// KindIntegrity covers a serialized object that fails to parse or
	// fails hash verification.
	KindIntegrity
	// KindConfig covers a store root that exists but is not a valid
	// store (missing HEAD).
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindIsDirectory:
		return "is-directory"
	case KindInvalidArgument:
		return "invalid-argument"
	case KindIOError:
		return "i/o-error"
	case KindIntegrity:
		return "integrity"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is a tagged variant replacing the ad-hoc "box of a displayable
// error" pattern: every error that crosses a component boundary carries
// a Kind in addition to a message and optional cause.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an Error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an Error carrying a cause chain.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// NotFound is a convenience constructor for the most common kind.
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

// Is reports whether err carries the given Kind, looking through wrapped
// causes via errors.As semantics.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ge, ok := err.(*Error); ok {
			e = ge
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
