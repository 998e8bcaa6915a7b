package execshell

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	logMessageCommandStarted   = "running command"
	logMessageCommandCompleted = "command completed"
	logMessageCommandFailed    = "command exited with non-zero status"
	logMessageCommandAborted   = "command could not complete"
	logFieldTool               = "tool"
	logFieldCommandLine        = "command_line"
	logFieldExitCode           = "exit_code"
	logFieldElapsed            = "elapsed"
	logFieldStandardError      = "stderr"
)

// ShellExecutor runs commands through a CommandRunner with logging and typed errors.
type ShellExecutor struct {
	logger   *zap.Logger
	runner   CommandRunner
	observer CommandEventObserver
	clock    func() time.Time
}

// NewShellExecutor validates its collaborators and returns an executor.
func NewShellExecutor(logger *zap.Logger, runner CommandRunner) (*ShellExecutor, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}
	if runner == nil {
		return nil, ErrCommandRunnerNotConfigured
	}
	return &ShellExecutor{
		logger:   logger,
		runner:   runner,
		observer: noopCommandEventObserver{},
		clock:    time.Now,
	}, nil
}

// WithObserver registers an observer for command lifecycle events.
func (executor *ShellExecutor) WithObserver(observer CommandEventObserver) *ShellExecutor {
	if observer == nil {
		observer = noopCommandEventObserver{}
	}
	executor.observer = observer
	return executor
}

// Execute runs the command. A non-zero exit code yields CommandFailedError
// carrying the subprocess stderr verbatim; start failures and cancellation
// yield CommandExecutionError.
func (executor *ShellExecutor) Execute(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	toolField := zap.String(logFieldTool, command.ToolName())
	executor.logger.Debug(logMessageCommandStarted, toolField, zap.String(logFieldCommandLine, command.String()))
	executor.observer.CommandStarted(command)

	startedAt := executor.clock()
	result, runError := executor.runner.Run(executionContext, command)
	elapsed := executor.clock().Sub(startedAt)

	if runError != nil {
		executor.logger.Warn(logMessageCommandAborted, toolField, zap.Error(runError))
		executor.observer.CommandExecutionFailed(command, runError)
		return ExecutionResult{}, CommandExecutionError{Command: command, Cause: runError}
	}

	executor.observer.CommandCompleted(command, result, elapsed)

	if result.ExitCode != 0 {
		executor.logger.Warn(
			logMessageCommandFailed,
			toolField,
			zap.Int(logFieldExitCode, result.ExitCode),
			zap.String(logFieldStandardError, result.StandardError),
		)
		return ExecutionResult{}, CommandFailedError{Command: command, Result: result}
	}

	executor.logger.Debug(logMessageCommandCompleted, toolField, zap.Duration(logFieldElapsed, elapsed))
	return result, nil
}
