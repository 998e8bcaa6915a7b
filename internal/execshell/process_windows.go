//go:build windows

package execshell

import (
	"os/exec"
	"syscall"
)

const createNoWindow = 0x08000000

// configureProcess hides the console window that would otherwise flash for
// every frame. Windows has no SIGTERM, so cancellation kills the child.
func configureProcess(command *exec.Cmd) {
	command.SysProcAttr = &syscall.SysProcAttr{HideWindow: true, CreationFlags: createNoWindow}
	command.Cancel = func() error {
		return command.Process.Kill()
	}
}
