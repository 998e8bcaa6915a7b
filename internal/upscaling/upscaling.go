// Package upscaling invokes Real-ESRGAN on single images and on extracted
// video frames.
package upscaling

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ssupscaler/internal/execshell"
)

// ErrNoFrames is returned when a frame directory is empty.
var ErrNoFrames = errors.New("no frames extracted from video")

// ErrModelNotFound is returned when neither the requested model nor any
// fallback model is installed.
var ErrModelNotFound = errors.New("no Real-ESRGAN model available")

// ProgressCallback is called during processing to report progress.
type ProgressCallback func(current, total int, message string)

// Executor runs a subprocess to completion.
type Executor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Options are the Real-ESRGAN knobs taken from the job settings.
type Options struct {
	Model     string
	Scale     int
	UseGPU    bool
	GPUDevice int
	// TileSize 0 omits -t so Real-ESRGAN picks a tile size itself.
	TileSize int
	// Format is the output image format for whole-image jobs.
	Format string
	// FrameTimeout bounds a single frame; 0 disables the limit.
	FrameTimeout time.Duration
}

// Upscaler runs one Real-ESRGAN executable against a models directory.
type Upscaler struct {
	executor       Executor
	executablePath string
	modelsDir      string
}

// NewUpscaler creates an upscaler.
func NewUpscaler(executor Executor, executablePath, modelsDir string) *Upscaler {
	return &Upscaler{executor: executor, executablePath: executablePath, modelsDir: modelsDir}
}

// ResolveModel returns requested when its .param file is installed, otherwise
// the first installed model. fellBack reports whether a substitution happened.
func (upscaler *Upscaler) ResolveModel(requested string, available []string) (model string, fellBack bool, err error) {
	if _, statErr := os.Stat(filepath.Join(upscaler.modelsDir, requested+".param")); statErr == nil {
		return requested, false, nil
	}
	if len(available) == 0 {
		return "", false, fmt.Errorf("%w: %q is not installed in %s", ErrModelNotFound, requested, upscaler.modelsDir)
	}
	return available[0], true, nil
}

const animeVideoFamily = "realesr-animevideov3"

// ModelArgument is the -n value for model. Real-ESRGAN appends "-x<scale>" to
// realesr-animevideov3 itself, so that family is passed without its suffix.
func ModelArgument(model string) string {
	if strings.HasPrefix(model, animeVideoFamily+"-x") {
		return animeVideoFamily
	}
	return model
}

// Command builds the Real-ESRGAN invocation for one input. wholeImage adds the
// output format flag; frames keep the PNG format ffmpeg expects.
func (upscaler *Upscaler) Command(inputPath, outputPath string, options Options, wholeImage bool) execshell.ShellCommand {
	arguments := []string{
		"-i", inputPath,
		"-o", outputPath,
		"-n", ModelArgument(options.Model),
		"-s", strconv.Itoa(options.Scale),
		"-m", upscaler.modelsDir,
	}
	if wholeImage && len(options.Format) > 0 {
		arguments = append(arguments, "-f", options.Format)
	}
	if options.UseGPU {
		arguments = append(arguments, "-g", strconv.Itoa(options.GPUDevice))
	}
	if options.TileSize > 0 {
		arguments = append(arguments, "-t", strconv.Itoa(options.TileSize))
	}
	return execshell.ShellCommand{
		Executable: upscaler.executablePath,
		Details:    execshell.CommandDetails{Arguments: arguments},
	}
}

var percentPattern = regexp.MustCompile(`^(\d{1,3}(?:[.,]\d+)?)%$`)

// ParseProgress extracts the percentage from a Real-ESRGAN progress line
// such as "42.50%".
func ParseProgress(line string) (float64, bool) {
	match := percentPattern.FindStringSubmatch(strings.TrimSpace(line))
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", "."), 64)
	if err != nil || value > 100 {
		return 0, false
	}
	return value, true
}

// UpscaleImage upscales one image, forwarding Real-ESRGAN's percentage lines
// as 0..100 progress.
func (upscaler *Upscaler) UpscaleImage(executionContext context.Context, inputPath, outputPath string, options Options, progress ProgressCallback) error {
	command := upscaler.Command(inputPath, outputPath, options, true)
	if progress != nil {
		lastReported := -1
		command.Details.LineHandler = func(line string) {
			value, ok := ParseProgress(line)
			if !ok || int(value) == lastReported {
				return
			}
			lastReported = int(value)
			progress(lastReported, 100, "Upscaling image...")
		}
	}
	if _, err := upscaler.executor.Execute(executionContext, command); err != nil {
		return err
	}
	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("upscaling completed but output file was not created: %s", outputPath)
	}
	if progress != nil {
		progress(100, 100, "Upscaling image...")
	}
	return nil
}

// FrameFailure describes a frame Real-ESRGAN could not process.
type FrameFailure struct {
	Frame string
	Err   error
}

// FrameFailureHandler decides what happens to a failed frame. Returning an
// error aborts the frame loop.
type FrameFailureHandler func(failure FrameFailure) error

// UpscaleFrames upscales frames, in order, into upscaledDir keeping each
// file name. A failed frame is passed to onFailure instead of aborting;
// cancellation is checked between frames.
func (upscaler *Upscaler) UpscaleFrames(executionContext context.Context, frames []string, upscaledDir string, options Options, progress ProgressCallback, onFailure FrameFailureHandler) (int, error) {
	total := len(frames)
	if total == 0 {
		return 0, ErrNoFrames
	}

	failed := 0
	for index, frame := range frames {
		if err := executionContext.Err(); err != nil {
			return failed, err
		}

		frameName := filepath.Base(frame)
		outputPath := filepath.Join(upscaledDir, frameName)
		if err := upscaler.upscaleFrame(executionContext, frame, outputPath, options); err != nil {
			if contextError := executionContext.Err(); contextError != nil {
				return failed, contextError
			}
			failed++
			if onFailure != nil {
				if handlerError := onFailure(FrameFailure{Frame: frameName, Err: err}); handlerError != nil {
					return failed, handlerError
				}
			}
		}

		if progress != nil {
			progress(index+1, total, fmt.Sprintf("Upscaling frame %d/%d", index+1, total))
		}
	}
	return failed, nil
}

func (upscaler *Upscaler) upscaleFrame(executionContext context.Context, inputPath, outputPath string, options Options) error {
	frameContext := executionContext
	if options.FrameTimeout > 0 {
		var cancel context.CancelFunc
		frameContext, cancel = context.WithTimeout(executionContext, options.FrameTimeout)
		defer cancel()
	}
	_, err := upscaler.executor.Execute(frameContext, upscaler.Command(inputPath, outputPath, options, false))
	return err
}
