package backend

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownBackend = errors.New("unknown backend")
	ErrInvalidHandle  = errors.New("invalid handle")
	ErrOutOfRange     = errors.New("access out of range")
	ErrClosed         = errors.New("backend closed")
)

// ExecutionError converts a value recovered from a failing kernel into an error.
func ExecutionError(name string, rec any) error {
	if recErr, ok := rec.(error); ok {
		return fmt.Errorf("%s execution failed: %w", name, recErr)
	}
	return fmt.Errorf("%s execution failed: %v", name, rec)
}
