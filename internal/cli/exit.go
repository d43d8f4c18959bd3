package cli

import (
	"errors"

	"github.com/rshade/facter-lookup/internal/facter"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitNotFound   = 2
	ExitInvocation = 3
	ExitExecution  = 4
	ExitParse      = 5
)

// ExitCode maps err to the process exit code for it.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, facter.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, facter.ErrInvocation):
		return ExitInvocation
	case errors.Is(err, facter.ErrExecution):
		return ExitExecution
	case errors.Is(err, facter.ErrParse):
		return ExitParse
	default:
		return ExitError
	}
}
