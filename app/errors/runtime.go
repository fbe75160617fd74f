package errors

import (
	"errors"
	"fmt"
	"log/slog"
)

// RuntimeError is an error that occurred while running a command. It carries
// an optional hint for the operator on how to resolve it.
type RuntimeError struct {
	msg   string
	cause error
	hint  string
}

// NewRuntimeError returns a new RuntimeError.
func NewRuntimeError(msg string, cause error, hint string) *RuntimeError {
	return &RuntimeError{msg: msg, cause: cause, hint: hint}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.cause)
}

// Unwrap returns the cause of the error.
func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// Hint returns the remediation hint, if any.
func (e *RuntimeError) Hint() string {
	return e.hint
}

// Errorf logs err at the error level, followed by the remediation hint of the
// first error in its chain that provides one.
func Errorf(err error) {
	Log(err)

	var h interface{ Hint() string }
	if errors.As(err, &h) && h.Hint() != "" {
		slog.Info(h.Hint())
	}
}
