// Package engineerr defines the typed error taxonomy shared by every
// core component.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error so a host bridge can switch on it
// without string matching.
type Kind string

const (
	IoError         Kind = "IoError"
	FormatError     Kind = "FormatError"
	NotOpen         Kind = "NotOpen"
	EmptyTile       Kind = "EmptyTile"
	InvalidArgument Kind = "InvalidArgument"
	Cancelled       Kind = "Cancelled"
)

// Error is the engine's single error type. Path is optional context
// (a filename), Err is the wrapped underlying cause, if any.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" && e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether err (or anything it wraps) is an *Error of kind k.
func Is(err error, k Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == k {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

func New(kind Kind, path string, err error) *Error {
	return &Error{Kind: kind, Path: path, Err: err}
}
