package main

import (
	"errors"
	"fmt"

	"github.com/elektrokombinacija/mise/internal/config"
)

// Exit codes
const (
	exitOK         = 0
	exitError      = 1 // Configuration, plan or solver failure
	exitUsage      = 2 // Bad arguments, flags or settings
	exitNoSolution = 3 // Infeasible, or nothing found within the limits
)

// errNoSolution reports a run that printed no schedule.
var errNoSolution = errors.New("no schedule")

// usageError marks errors caused by how mise was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error returned by the root command to an exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var usage usageError
	var settings config.ValidationErrors
	switch {
	case errors.Is(err, errNoSolution):
		return exitNoSolution
	case errors.As(err, &usage), errors.As(err, &settings):
		return exitUsage
	default:
		return exitError
	}
}
