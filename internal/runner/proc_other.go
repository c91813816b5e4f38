//go:build !unix

package runner

import "os/exec"

// setProcessGroup is a no-op where process groups are not available;
// cancellation kills the shell process only.
func setProcessGroup(cmd *exec.Cmd) {}

func killProcessGroup(pid int) error { return nil }
