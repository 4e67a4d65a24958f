// Package cmd wires the stencil CLI commands.
package cmd

import (
	"errors"
)

// Exit codes.
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitValidationError = 2
	ExitBuildError      = 3
	ExitNetworkError    = 4
)

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates the theme failed structural checks.
	ErrValidation = errors.New("validation error")

	// ErrBuild indicates a packaging stage (resolve, compile, link) failed.
	ErrBuild = errors.New("build error")

	// ErrNetwork indicates a remote deployment step failed.
	ErrNetwork = errors.New("network error")
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, ErrValidation):
		return ExitValidationError
	case errors.Is(err, ErrBuild):
		return ExitBuildError
	case errors.Is(err, ErrNetwork):
		return ExitNetworkError
	default:
		return ExitGeneralError
	}
}
