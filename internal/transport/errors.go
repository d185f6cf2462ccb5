package transport

import (
	"errors"
	"fmt"
)

// ErrTransport matches every *Error.
var ErrTransport = errors.New("transport error")

// Error is a network or HTTP-level failure.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Method, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == ErrTransport }
