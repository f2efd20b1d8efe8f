package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJobs indicates an attempt to construct a run with zero jobs
	ErrNoJobs = errors.New("run must contain at least one job")

	// ErrRunNotFound indicates the run doesn't exist in the registry
	ErrRunNotFound = errors.New("run not found")

	// ErrRunFinished indicates a cancel request arrived after the run
	// already reached a terminal status
	ErrRunFinished = errors.New("run already finished")
)

// StepError describes why a step could not produce a normal exit code
type StepError struct {
	Step  string
	Cause string
	Err   error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %q: %s: %v", e.Step, e.Cause, e.Err)
	}
	return fmt.Sprintf("step %q: %s", e.Step, e.Cause)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
