//go:build !windows

package execshell

import (
	"os/exec"
	"syscall"
)

// configureProcess asks the child to terminate gracefully on cancellation;
// exec.Cmd.WaitDelay escalates to a kill if it does not exit in time.
func configureProcess(command *exec.Cmd) {
	command.Cancel = func() error {
		return command.Process.Signal(syscall.SIGTERM)
	}
}
