package juju

import "errors"

// Exit codes carried by FatalError. 1 is reserved for a unit agent
// reporting an error state; the 4x codes classify failures of the juju
// CLI itself.
const (
	ExitAgentError    = 1
	ExitNotLaunched   = 41
	ExitInternalError = 42
	ExitCommandFailed = 43
)

// FatalError aborts the wait immediately. Everything else the waiter
// encounters is a transient not-ready condition and is retried forever.
type FatalError struct {
	Code int
	Err  error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// ExitCode maps err to a process exit status: 0 for nil, the carried code
// for a FatalError, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	fatal := &FatalError{}
	if errors.As(err, &fatal) {
		return fatal.Code
	}
	return 1
}
