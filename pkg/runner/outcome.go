package runner

import (
	"fmt"
	"syscall"

	"golang.org/x/sys/unix"
)

// Outcome describes how a child process terminated: either it exited with Code or it was
// killed by Signal.
type Outcome struct {
	Signaled bool
	Code     int
	Signal   syscall.Signal
}

// Exited returns the outcome of a process that exited normally with code
func Exited(code int) Outcome {
	return Outcome{Code: code}
}

// KilledBy returns the outcome of a process terminated by sig
func KilledBy(sig syscall.Signal) Outcome {
	return Outcome{Signaled: true, Signal: sig}
}

// Success is true for a normal exit with code 0
func (o Outcome) Success() bool {
	return !o.Signaled && o.Code == 0
}

func (o Outcome) String() string {
	if o.Signaled {
		name := unix.SignalName(o.Signal)
		if name == "" {
			return fmt.Sprintf("was terminated by signal %d", int(o.Signal))
		}
		return fmt.Sprintf("was terminated by signal %d (%s)", int(o.Signal), name)
	}

	return fmt.Sprintf("exited with code %d", o.Code)
}

// ExitError is returned by Run when the child didn't exit with code 0
type ExitError struct {
	Argv    []string
	Outcome Outcome
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("child process `%s` %s", FormatCommand(e.Argv), e.Outcome)
}
