package execshell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"
)

// DefaultTerminationGracePeriod is how long a cancelled subprocess may take to
// exit after the terminate signal before it is killed.
const DefaultTerminationGracePeriod = 5 * time.Second

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct {
	gracePeriod time.Duration
}

// NewOSCommandRunner constructs a runner backed by os/exec.
func NewOSCommandRunner() *OSCommandRunner {
	return &OSCommandRunner{gracePeriod: DefaultTerminationGracePeriod}
}

// WithGracePeriod overrides the terminate-to-kill grace period.
func (runner *OSCommandRunner) WithGracePeriod(gracePeriod time.Duration) *OSCommandRunner {
	runner.gracePeriod = gracePeriod
	return runner
}

// Run executes the supplied command using os/exec. A non-zero exit code is
// reported through ExecutionResult, not as an error; the error return is
// reserved for processes that could not start or were cancelled.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	commandArguments := append([]string{}, command.Details.Arguments...)
	executable := exec.CommandContext(executionContext, command.Executable, commandArguments...)
	configureProcess(executable)
	executable.WaitDelay = runner.gracePeriod

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	var standardOutputBuffer bytes.Buffer
	var standardErrorBuffer bytes.Buffer
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = &standardErrorBuffer

	var writers []*lineWriter
	if command.Details.LineHandler != nil {
		handlerLock := &sync.Mutex{}
		stdoutLines := newLineWriter(command.Details.LineHandler, handlerLock)
		stderrLines := newLineWriter(command.Details.LineHandler, handlerLock)
		executable.Stdout = io.MultiWriter(&standardOutputBuffer, stdoutLines)
		executable.Stderr = io.MultiWriter(&standardErrorBuffer, stderrLines)
		writers = append(writers, stdoutLines, stderrLines)
	}

	runError := executable.Run()
	for _, writer := range writers {
		writer.Flush()
	}

	result := ExecutionResult{
		StandardOutput: standardOutputBuffer.String(),
		StandardError:  standardErrorBuffer.String(),
	}

	if contextError := executionContext.Err(); contextError != nil {
		result.ExitCode = -1
		return result, contextError
	}

	if runError != nil {
		exitError := &exec.ExitError{}
		if errors.As(runError, &exitError) {
			result.ExitCode = exitError.ExitCode()
			return result, nil
		}
		return ExecutionResult{}, runError
	}

	return result, nil
}
