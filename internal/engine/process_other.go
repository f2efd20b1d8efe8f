//go:build !unix

package engine

import (
	"os"
	"os/exec"
)

// setProcessGroup is a no-op where process groups are unsupported
func setProcessGroup(cmd *exec.Cmd) {}

// terminateProcessGroup signals the process directly on non-Unix platforms
func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Signal(os.Interrupt)
}

// killProcessGroup kills the process directly on non-Unix platforms
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
