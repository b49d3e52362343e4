package scripting

import (
	"errors"
	"fmt"
)

// ErrNotFunction is wrapped by a CallError when the program does not expose
// the requested entry point.
var ErrNotFunction = errors.New("is not a function")

// SetupFault means a competitor program could not be loaded. It aborts match
// creation and is never attributed as a disqualification.
type SetupFault struct {
	Role Role
	Name string
	Err  error
}

func (e *SetupFault) Error() string {
	return fmt.Sprintf("loading %s %q: %v", e.Role, e.Name, e.Err)
}

func (e *SetupFault) Unwrap() error { return e.Err }

// CallError is a fault raised while a competitor method ran: an exception
// thrown by the program, a missing entry point, or an interrupt after the
// call outran its wall-clock limit.
type CallError struct {
	Name        string
	Method      string
	Interrupted bool
	Err         error
}

func (e *CallError) Error() string {
	if e.Interrupted {
		return fmt.Sprintf("%s.%s() was interrupted: %v", e.Name, e.Method, e.Err)
	}
	return fmt.Sprintf("%s.%s(): %v", e.Name, e.Method, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ShapeError means a competitor method returned a value of the wrong shape.
// Err is the decode failure; for a generated maze it may be a
// *maze.LayoutError.
type ShapeError struct {
	Name   string
	Method string
	Err    error
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s.%s() returned a malformed value: %v", e.Name, e.Method, e.Err)
}

func (e *ShapeError) Unwrap() error { return e.Err }
