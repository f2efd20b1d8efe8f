package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/lei/runci/internal/models"
)

func testExecutor() *Executor {
	return NewExecutor(0, time.Second, 0, nil)
}

func TestExecutor_Success(t *testing.T) {
	res := testExecutor().Execute(context.Background(), models.Step{
		Name:    "hello",
		Command: []string{"sh", "-c", "echo out; echo err 1>&2"},
	}, "")

	if res.Status != models.StatusSuccess {
		t.Fatalf("Status = %s, want %s (error=%q)", res.Status, models.StatusSuccess, res.Error)
	}
	if res.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", res.ExitCode)
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "err") {
		t.Errorf("Output = %q, want combined stdout and stderr", res.Output)
	}
	if res.Truncated {
		t.Error("Truncated = true, want false")
	}
	if res.Duration <= 0 {
		t.Error("Duration not recorded")
	}
}

func TestExecutor_NonZeroExit(t *testing.T) {
	res := testExecutor().Execute(context.Background(), models.Step{
		Name:    "clippy",
		Command: []string{"sh", "-c", "echo warning; exit 101"},
	}, "")

	if res.Status != models.StatusFailure {
		t.Fatalf("Status = %s, want %s", res.Status, models.StatusFailure)
	}
	if res.ExitCode != 101 {
		t.Errorf("ExitCode = %d, want 101", res.ExitCode)
	}
	if res.Cause != "" {
		t.Errorf("Cause = %q, want empty for a plain nonzero exit", res.Cause)
	}
	if !strings.Contains(res.Output, "warning") {
		t.Errorf("Output = %q, want captured output from the failing step", res.Output)
	}
}

func TestExecutor_LaunchError(t *testing.T) {
	res := testExecutor().Execute(context.Background(), models.Step{
		Name:    "missing",
		Command: []string{"/nonexistent/definitely-not-a-binary"},
	}, "")

	if res.Status != models.StatusFailure {
		t.Fatalf("Status = %s, want %s", res.Status, models.StatusFailure)
	}
	if res.Cause != models.CauseLaunchError {
		t.Errorf("Cause = %q, want %q", res.Cause, models.CauseLaunchError)
	}
	if res.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1 (no exit code exists)", res.ExitCode)
	}
	if res.Error == "" {
		t.Error("Error is empty, want launch failure description")
	}
}

func TestExecutor_EmptyCommand(t *testing.T) {
	res := testExecutor().Execute(context.Background(), models.Step{Name: "empty"}, "")
	if res.Status != models.StatusFailure || res.Cause != models.CauseLaunchError {
		t.Errorf("got status=%s cause=%q, want launch-error failure", res.Status, res.Cause)
	}
}

func TestExecutor_OutputCap(t *testing.T) {
	exec := NewExecutor(1024, time.Second, 0, nil)
	res := exec.Execute(context.Background(), models.Step{
		Name:    "noisy",
		Command: []string{"sh", "-c", "i=0; while [ $i -lt 1000 ]; do echo 0123456789; i=$((i+1)); done"},
	}, "")

	if res.Status != models.StatusSuccess {
		t.Fatalf("Status = %s, want %s", res.Status, models.StatusSuccess)
	}
	if len(res.Output) != 1024 {
		t.Errorf("len(Output) = %d, want exactly the 1024 byte cap", len(res.Output))
	}
	if !res.Truncated {
		t.Error("Truncated = false, want true")
	}
}

func TestExecutor_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	res := testExecutor().Execute(ctx, models.Step{
		Name:    "sleepy",
		Command: []string{"sh", "-c", "sleep 30"},
	}, "")

	if res.Status != models.StatusCanceled {
		t.Fatalf("Status = %s, want %s", res.Status, models.StatusCanceled)
	}
	if res.Cause == models.CauseTimeout {
		t.Error("Cause = timeout, want external cancellation without a timeout cause")
	}
	// Prompt termination: well under the sleep duration even with the
	// grace period included
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("cancellation took %s, want prompt termination", elapsed)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	res := testExecutor().Execute(context.Background(), models.Step{
		Name:    "slow",
		Command: []string{"sh", "-c", "sleep 30"},
		Timeout: 100 * time.Millisecond,
	}, "")

	if res.Status != models.StatusCanceled {
		t.Fatalf("Status = %s, want %s", res.Status, models.StatusCanceled)
	}
	if res.Cause != models.CauseTimeout {
		t.Errorf("Cause = %q, want %q", res.Cause, models.CauseTimeout)
	}
}

func TestExecutor_Workdir(t *testing.T) {
	dir := t.TempDir()
	res := testExecutor().Execute(context.Background(), models.Step{
		Name:    "pwd",
		Command: []string{"pwd"},
	}, dir)

	if res.Status != models.StatusSuccess {
		t.Fatalf("Status = %s, want %s", res.Status, models.StatusSuccess)
	}
	if strings.TrimSpace(res.Output) != dir {
		t.Errorf("Output = %q, want working directory %q", strings.TrimSpace(res.Output), dir)
	}
}
