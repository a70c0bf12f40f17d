//go:build unix

package session

import (
	"os/exec"
	"syscall"
)

// killProcessGroup starts the server as the leader of a new process group
// and makes cancellation kill the whole group, so children a wrapper script
// spawned do not outlive the session or hold its pipes open.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
}
