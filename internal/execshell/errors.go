package execshell

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLoggerNotConfigured indicates that a nil logger was supplied.
	ErrLoggerNotConfigured = errors.New("execshell: logger not configured")
	// ErrCommandRunnerNotConfigured indicates that a nil runner was supplied.
	ErrCommandRunnerNotConfigured = errors.New("execshell: command runner not configured")
)

// CommandFailedError reports a subprocess that ran and exited with a non-zero code.
type CommandFailedError struct {
	Command ShellCommand
	Result  ExecutionResult
}

func (failure CommandFailedError) Error() string {
	standardError := strings.TrimSpace(failure.Result.StandardError)
	if standardError == "" {
		return fmt.Sprintf("%s exited with code %d", failure.Command.ToolName(), failure.Result.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", failure.Command.ToolName(), failure.Result.ExitCode, standardError)
}

// CommandExecutionError reports a subprocess that could not be run to completion,
// either because it failed to start or because its context was cancelled.
type CommandExecutionError struct {
	Command ShellCommand
	Cause   error
}

func (failure CommandExecutionError) Error() string {
	return fmt.Sprintf("%s failed: %v", failure.Command.ToolName(), failure.Cause)
}

func (failure CommandExecutionError) Unwrap() error {
	return failure.Cause
}
