package tables

import (
	"errors"
	"fmt"
)

var (
	ErrMarkers      = errors.New("tables: invalid level markers")
	ErrMissingTable = errors.New("tables: missing table")
	ErrEditTable    = errors.New("tables: invalid edit table")
)

// PreconditionError is the panic value raised when a table set does not match
// what the dispatcher was asked to do. It signals a broken producer contract and
// is never returned as an ordinary error.
type PreconditionError struct {
	Op  string
	Msg string
	Err error
}

func (e *PreconditionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("precondition violated in %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("precondition violated in %s: %s", e.Op, e.Msg)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// Fail panics with a PreconditionError.
func Fail(op, format string, args ...any) {
	panic(&PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// FailWith panics with a PreconditionError wrapping err.
func FailWith(op string, err error, format string, args ...any) {
	panic(&PreconditionError{Op: op, Msg: fmt.Sprintf(format, args...), Err: err})
}
