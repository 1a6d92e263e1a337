//go:build !unix

package runner

import "os/exec"

// setProcessGroup is a no-op; exec.CommandContext kills only the direct child.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup is a no-op; there is no group to kill once the child exited.
func killProcessGroup(cmd *exec.Cmd) error { return nil }
