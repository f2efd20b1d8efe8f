package engine

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/lei/runci/internal/models"
	"github.com/lei/runci/pkg/logger"
)

// Default resource limits applied when the config leaves them unset
const (
	DefaultMaxOutputBytes = 1 << 20 // 1 MiB combined stdout+stderr per step
	DefaultGracePeriod    = 5 * time.Second
)

// StepExecutor runs a single step to completion and reports the outcome.
// Implementations must not leak a running child process after returning.
type StepExecutor interface {
	Execute(ctx context.Context, step models.Step, workdir string) models.StepResult
}

// Executor runs step commands as supervised child processes with
// captured, capped output. It holds no cross-call state.
type Executor struct {
	// MaxOutputBytes caps combined stdout+stderr per step; output past
	// the cap is dropped and the result is flagged truncated.
	MaxOutputBytes int64

	// GracePeriod is how long a canceled step may run after SIGTERM
	// before the process group is killed.
	GracePeriod time.Duration

	// DefaultTimeout applies to steps that declare no timeout of their
	// own. Zero means no deadline.
	DefaultTimeout time.Duration

	log *logger.Logger
}

// NewExecutor creates an executor with the given limits, filling in
// defaults for unset values
func NewExecutor(maxOutputBytes int64, gracePeriod, defaultTimeout time.Duration, log *logger.Logger) *Executor {
	if maxOutputBytes <= 0 {
		maxOutputBytes = DefaultMaxOutputBytes
	}
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{
		MaxOutputBytes: maxOutputBytes,
		GracePeriod:    gracePeriod,
		DefaultTimeout: defaultTimeout,
		log:            log,
	}
}

// Execute runs one step. Exit code 0 maps to success, nonzero to
// failure with the code. A command that cannot start fails with a
// launch-error cause and no exit code. Cancellation terminates the
// process group and yields a canceled result; a deadline expiry is a
// canceled result with a timeout cause.
func (e *Executor) Execute(ctx context.Context, step models.Step, workdir string) models.StepResult {
	start := time.Now()
	res := models.StepResult{Name: step.Name, ExitCode: -1}

	if len(step.Command) == 0 {
		res.Status = models.StatusFailure
		res.Cause = models.CauseLaunchError
		res.Error = (&StepError{Step: step.Name, Cause: models.CauseLaunchError,
			Err: fmt.Errorf("empty command")}).Error()
		return res
	}

	timeout := step.Timeout
	if timeout == 0 {
		timeout = e.DefaultTimeout
	}
	stepCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.Command(step.Command[0], step.Command[1:]...)
	cmd.Dir = workdir
	if step.Dir != "" {
		cmd.Dir = step.Dir
	}

	out := newCappedBuffer(e.MaxOutputBytes)
	cmd.Stdout = out
	cmd.Stderr = out
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		e.log.Warn("step failed to launch", "step", step.Name, "error", err)
		res.Status = models.StatusFailure
		res.Cause = models.CauseLaunchError
		res.Error = (&StepError{Step: step.Name, Cause: models.CauseLaunchError, Err: err}).Error()
		res.Duration = time.Since(start)
		return res
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	var waitErr error
	canceled := false
	select {
	case waitErr = <-waitDone:
	case <-stepCtx.Done():
		canceled = true
		if err := terminateProcessGroup(cmd); err != nil {
			e.log.Warn("failed to signal step", "step", step.Name, "error", err)
		}
		select {
		case waitErr = <-waitDone:
		case <-time.After(e.GracePeriod):
			if err := killProcessGroup(cmd); err != nil {
				e.log.Warn("failed to kill step", "step", step.Name, "error", err)
			}
			waitErr = <-waitDone
		}
	}

	res.Output = out.String()
	res.Truncated = out.Truncated()
	res.Duration = time.Since(start)

	if canceled {
		res.Status = models.StatusCanceled
		// A deadline expiry while the parent is still live is a timeout,
		// not an external cancellation.
		if errors.Is(stepCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			res.Cause = models.CauseTimeout
		}
		return res
	}

	if waitErr == nil {
		res.Status = models.StatusSuccess
		res.ExitCode = 0
		return res
	}

	res.Status = models.StatusFailure
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.Error = waitErr.Error()
	}
	return res
}
