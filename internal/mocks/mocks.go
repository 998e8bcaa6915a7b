// Package mocks provides test doubles for subprocess execution and user prompts.
package mocks

import (
	"context"
	"sync"

	"ssupscaler/internal/execshell"
)

// CommandResponse is a canned outcome for one tool invocation.
type CommandResponse struct {
	Result execshell.ExecutionResult
	Err    error
	// Lines are replayed through the command's LineHandler before returning.
	Lines []string
}

// RecordingRunner is an execshell.CommandRunner that records every command
// instead of spawning a process.
type RecordingRunner struct {
	lock sync.Mutex

	Commands []execshell.ShellCommand
	// Responses are keyed by ShellCommand.ToolName().
	Responses map[string]CommandResponse
	// Handler, when set, takes precedence over Responses. Tests use it to
	// create the files a real tool would have written.
	Handler func(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// NewRecordingRunner creates a runner whose commands all succeed.
func NewRecordingRunner() *RecordingRunner {
	return &RecordingRunner{Responses: make(map[string]CommandResponse)}
}

func (runner *RecordingRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.lock.Lock()
	runner.Commands = append(runner.Commands, command)
	handler := runner.Handler
	response, found := runner.Responses[command.ToolName()]
	runner.lock.Unlock()

	if handler != nil {
		return handler(executionContext, command)
	}
	if !found {
		return execshell.ExecutionResult{}, nil
	}
	if command.Details.LineHandler != nil {
		for _, line := range response.Lines {
			command.Details.LineHandler(line)
		}
	}
	return response.Result, response.Err
}

// Recorded returns a snapshot of the commands seen so far.
func (runner *RecordingRunner) Recorded() []execshell.ShellCommand {
	runner.lock.Lock()
	defer runner.lock.Unlock()
	return append([]execshell.ShellCommand(nil), runner.Commands...)
}

// CommandsFor returns the recorded commands for one tool.
func (runner *RecordingRunner) CommandsFor(tool string) []execshell.ShellCommand {
	var matching []execshell.ShellCommand
	for _, command := range runner.Recorded() {
		if command.ToolName() == tool {
			matching = append(matching, command)
		}
	}
	return matching
}

// FlagValue returns the argument following flag, or "" when flag is absent.
func FlagValue(command execshell.ShellCommand, flag string) string {
	arguments := command.Details.Arguments
	for index := 0; index < len(arguments)-1; index++ {
		if arguments[index] == flag {
			return arguments[index+1]
		}
	}
	return ""
}

// HasFlag reports whether flag appears in the command arguments.
func HasFlag(command execshell.ShellCommand, flag string) bool {
	for _, argument := range command.Details.Arguments {
		if argument == flag {
			return true
		}
	}
	return false
}
