package cmd

import (
	"errors"
	"fmt"

	"github.com/adamancini/betterfox-updater/internal/workflow"
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for err: 0 for nil, the carried code for
// an ExitError and 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return workflow.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return workflow.ExitFailure
}

// resultError turns a failed workflow result into an ExitError.
func resultError(res workflow.Result) error {
	if res.Outcome.OK() {
		return nil
	}
	return &ExitError{
		Code:    res.Outcome.ExitCode(),
		Message: res.Status.String(),
		Cause:   res.Err,
	}
}
