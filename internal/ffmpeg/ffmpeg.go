// Package ffmpeg drives the ffmpeg executable for frame extraction, audio
// copying and video reassembly.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ssupscaler/internal/execshell"
)

// Executor runs a subprocess to completion.
type Executor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Tool wraps one ffmpeg executable.
type Tool struct {
	executor Executor
	path     string
}

// NewTool creates a Tool invoking the ffmpeg at path.
func NewTool(executor Executor, path string) *Tool {
	return &Tool{executor: executor, path: path}
}

// Path returns the ffmpeg executable used.
func (tool *Tool) Path() string {
	return tool.path
}

// IsAvailable reports whether the configured executable exists.
func (tool *Tool) IsAvailable() bool {
	if tool.path == "" {
		return false
	}
	info, err := os.Stat(tool.path)
	return err == nil && !info.IsDir()
}

func (tool *Tool) command(arguments ...string) execshell.ShellCommand {
	return execshell.ShellCommand{
		Executable: tool.path,
		Details:    execshell.CommandDetails{Arguments: arguments},
	}
}

// ExtractFrames decodes every frame of videoPath into lossless RGB PNGs
// matching framePattern (e.g. frames/frame_%06d.png).
func (tool *Tool) ExtractFrames(executionContext context.Context, videoPath, framePattern string) error {
	command := tool.command("-i", videoPath, "-q:v", "1", "-pix_fmt", "rgb24", framePattern)
	if _, err := tool.executor.Execute(executionContext, command); err != nil {
		return fmt.Errorf("frame extraction failed: %w", err)
	}
	return nil
}

// ExtractAudio copies the first audio track of videoPath into audioPath
// without re-encoding. It returns false, without error, when the video has no
// audio track; cancellation is still reported as an error.
func (tool *Tool) ExtractAudio(executionContext context.Context, videoPath, audioPath string) (bool, error) {
	command := tool.command("-i", videoPath, "-vn", "-acodec", "copy", "-y", audioPath)
	if _, err := tool.executor.Execute(executionContext, command); err != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return false, contextError
		}
		var failed execshell.CommandFailedError
		if errors.As(err, &failed) {
			return false, nil
		}
		return false, fmt.Errorf("audio extraction failed: %w", err)
	}
	info, err := os.Stat(audioPath)
	return err == nil && info.Size() > 0, nil
}

// ReassembleOptions configures the final encode.
type ReassembleOptions struct {
	FramePattern string
	// AudioPath is muxed in when non-empty.
	AudioPath  string
	OutputPath string
	FPS        float64
	CRF        int
}

// ReassembleArguments builds the ffmpeg arguments for opts.
func ReassembleArguments(opts ReassembleOptions) []string {
	arguments := []string{"-framerate", FormatFPS(opts.FPS), "-i", opts.FramePattern}
	if len(opts.AudioPath) > 0 {
		arguments = append(arguments, "-i", opts.AudioPath)
	}
	arguments = append(arguments, "-c:v", "libx264")
	if len(opts.AudioPath) > 0 {
		arguments = append(arguments, "-c:a", "aac")
	}
	arguments = append(arguments, "-pix_fmt", "yuv420p", "-crf", strconv.Itoa(opts.CRF))
	if len(opts.AudioPath) > 0 {
		arguments = append(arguments, "-shortest")
	}
	return append(arguments, "-y", opts.OutputPath)
}

// Reassemble encodes the upscaled frame sequence into the output video.
func (tool *Tool) Reassemble(executionContext context.Context, opts ReassembleOptions) error {
	if opts.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %v", opts.FPS)
	}
	if _, err := tool.executor.Execute(executionContext, tool.command(ReassembleArguments(opts)...)); err != nil {
		return fmt.Errorf("video reassembly failed: %w", err)
	}
	return nil
}

// FormatFPS renders a frame rate with at most three decimals, e.g. 24 or 29.97.
func FormatFPS(fps float64) string {
	formatted := strconv.FormatFloat(fps, 'f', 3, 64)
	formatted = strings.TrimRight(formatted, "0")
	return strings.TrimSuffix(formatted, ".")
}
