package execshell

import (
	"context"
	"path/filepath"
	"strings"
)

// LineHandler receives one line of subprocess output at a time.
type LineHandler func(line string)

// CommandDetails describes how an executable is invoked.
type CommandDetails struct {
	Arguments        []string
	WorkingDirectory string
	// LineHandler, when set, is called for every stdout/stderr line as it is
	// produced. Lines are split on both '\n' and '\r'.
	LineHandler LineHandler
}

// ShellCommand couples an executable path with its invocation details.
type ShellCommand struct {
	Executable string
	Details    CommandDetails
}

// ExecutionResult captures the outcome of a finished subprocess.
type ExecutionResult struct {
	StandardOutput string
	StandardError  string
	ExitCode       int
}

// CommandRunner executes a single command.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ToolName returns the executable base name without a Windows suffix, e.g.
// "ffmpeg" or "realesrgan-ncnn-vulkan".
func (command ShellCommand) ToolName() string {
	base := filepath.Base(command.Executable)
	return strings.TrimSuffix(strings.TrimSuffix(base, ".exe"), ".EXE")
}

// String renders the command line the way it would be typed in a shell.
func (command ShellCommand) String() string {
	parts := make([]string, 0, len(command.Details.Arguments)+1)
	parts = append(parts, quoteArgument(command.Executable))
	for _, argument := range command.Details.Arguments {
		parts = append(parts, quoteArgument(argument))
	}
	return strings.Join(parts, " ")
}

func quoteArgument(argument string) string {
	if argument == "" {
		return `""`
	}
	if strings.ContainsAny(argument, " \t\"'") {
		return `"` + strings.ReplaceAll(argument, `"`, `\"`) + `"`
	}
	return argument
}
