package runner

import (
	"fmt"
	"time"
)

// LaunchError is returned when the executable could not be found or the
// process could not be created. No Result exists for a launch failure.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IOError is returned when the process ran but its streams could not be
// captured or decoded. Partial holds whatever was collected.
type IOError struct {
	Command string
	Partial *Result
	Err     error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("capturing output of %s: %v", e.Command, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// TimeoutError is returned when the deadline expired before the process
// exited. The process group has been killed; Partial holds the output
// captured up to that point.
type TimeoutError struct {
	Command string
	Timeout time.Duration // zero when the deadline came from the caller's context
	Partial *Result
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s timed out after %s", e.Command, e.Timeout)
	}
	return fmt.Sprintf("%s timed out: deadline exceeded", e.Command)
}
