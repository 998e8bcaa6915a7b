package pipeline_test

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ssupscaler/internal/config"
	"ssupscaler/internal/execshell"
	"ssupscaler/internal/mocks"
	"ssupscaler/internal/pipeline"
	"ssupscaler/internal/tools"
	"ssupscaler/internal/workspace"
)

// fakeToolchain stands in for Real-ESRGAN, ffmpeg and ffprobe by writing the
// files each tool would produce.
type fakeToolchain struct {
	lock sync.Mutex

	frameCount   int
	frameSize    int
	scale        int
	failFrames   map[string]bool
	writeAudio   bool
	probeOutput  string
	failImage    string
	onRealESRGAN func(command execshell.ShellCommand)
	// onReassemble runs after the output video is written, before ffmpeg exits.
	onReassemble func()
}

func (toolchain *fakeToolchain) handle(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	if err := executionContext.Err(); err != nil {
		return execshell.ExecutionResult{}, err
	}
	switch command.ToolName() {
	case "ffprobe":
		return execshell.ExecutionResult{StandardOutput: toolchain.probeOutput}, nil
	case "realesrgan-ncnn-vulkan":
		if toolchain.onRealESRGAN != nil {
			toolchain.onRealESRGAN(command)
		}
		input := filepath.Base(mocks.FlagValue(command, "-i"))
		if toolchain.failFrames[input] {
			return execshell.ExecutionResult{ExitCode: 1, StandardError: "decode image failed"}, nil
		}
		if len(toolchain.failImage) > 0 {
			return execshell.ExecutionResult{ExitCode: 1, StandardError: toolchain.failImage}, nil
		}
		if command.Details.LineHandler != nil {
			command.Details.LineHandler("50.00%")
		}
		return execshell.ExecutionResult{}, writeImage(mocks.FlagValue(command, "-o"), toolchain.frameSize*toolchain.scale)
	case "ffmpeg":
		arguments := command.Details.Arguments
		output := arguments[len(arguments)-1]
		switch {
		case mocks.HasFlag(command, "-q:v"):
			for index := 1; index <= toolchain.frameCount; index++ {
				if err := writeImage(fmt.Sprintf(output, index), toolchain.frameSize); err != nil {
					return execshell.ExecutionResult{}, err
				}
			}
		case mocks.HasFlag(command, "-vn"):
			if !toolchain.writeAudio {
				return execshell.ExecutionResult{ExitCode: 1, StandardError: "Output file #0 does not contain any stream"}, nil
			}
			return execshell.ExecutionResult{}, os.WriteFile(output, []byte("audio"), 0o644)
		case mocks.HasFlag(command, "-framerate"):
			frames, err := workspace.Frames(filepath.Dir(mocks.FlagValue(command, "-i")))
			if err != nil || len(frames) != toolchain.frameCount {
				return execshell.ExecutionResult{ExitCode: 1, StandardError: "frame sequence incomplete"}, nil
			}
			if err := os.WriteFile(output, []byte("video"), 0o644); err != nil {
				return execshell.ExecutionResult{}, err
			}
			if toolchain.onReassemble != nil {
				toolchain.onReassemble()
				if err := executionContext.Err(); err != nil {
					return execshell.ExecutionResult{}, err
				}
			}
			return execshell.ExecutionResult{}, nil
		}
	}
	return execshell.ExecutionResult{}, nil
}

func writeImage(path string, size int) error {
	if strings.Contains(path, "%") {
		return fmt.Errorf("unexpanded pattern %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return png.Encode(file, image.NewRGBA(image.Rect(0, 0, size, size)))
}

type harness struct {
	runner    *mocks.RecordingRunner
	toolchain *fakeToolchain
	worker    *pipeline.Worker
	scratch   string
	inputDir  string
	outputDir string
}

func newHarness(testInstance *testing.T, toolchain *fakeToolchain, withProbe bool) *harness {
	testInstance.Helper()
	root := testInstance.TempDir()
	binDir := filepath.Join(root, "bin")
	modelsDir := filepath.Join(binDir, "models")
	require.NoError(testInstance, os.MkdirAll(modelsDir, 0o755))
	for _, model := range []string{config.ModelAnimeVideoX2, config.ModelAnimeVideoX4} {
		require.NoError(testInstance, os.WriteFile(filepath.Join(modelsDir, model+".param"), []byte{}, 0o644))
		require.NoError(testInstance, os.WriteFile(filepath.Join(modelsDir, model+".bin"), []byte{}, 0o644))
	}
	ffmpegPath := filepath.Join(binDir, "ffmpeg")
	require.NoError(testInstance, os.WriteFile(ffmpegPath, []byte{}, 0o755))

	dependencies := tools.Dependencies{
		RealESRGAN: filepath.Join(binDir, "realesrgan-ncnn-vulkan"),
		FFmpeg:     ffmpegPath,
		ModelsDir:  modelsDir,
		Models:     []string{config.ModelAnimeVideoX2, config.ModelAnimeVideoX4},
	}
	if withProbe {
		dependencies.FFprobe = filepath.Join(binDir, "ffprobe")
	}

	runner := mocks.NewRecordingRunner()
	runner.Handler = toolchain.handle
	executor, err := execshell.NewShellExecutor(zap.NewNop(), runner)
	require.NoError(testInstance, err)

	scratch := filepath.Join(root, "scratch")
	harnessInstance := &harness{
		runner:    runner,
		toolchain: toolchain,
		worker:    pipeline.NewWorker(zap.NewNop(), executor, dependencies, workspace.NewManager(scratch)),
		scratch:   scratch,
		inputDir:  filepath.Join(root, "input"),
		outputDir: filepath.Join(root, "output"),
	}
	require.NoError(testInstance, os.MkdirAll(harnessInstance.inputDir, 0o755))
	require.NoError(testInstance, os.MkdirAll(harnessInstance.outputDir, 0o755))
	return harnessInstance
}

func (harnessInstance *harness) input(testInstance *testing.T, name string) string {
	testInstance.Helper()
	path := filepath.Join(harnessInstance.inputDir, name)
	require.NoError(testInstance, writeImage(path, 8))
	return path
}

// runJob runs the worker and returns the outcome plus every emitted event.
func runJob(executionContext context.Context, worker pipeline.Runner, job pipeline.Job) (pipeline.Outcome, []pipeline.Event) {
	events := make(chan pipeline.Event)
	collected := make(chan []pipeline.Event)
	go func() {
		var all []pipeline.Event
		for event := range events {
			all = append(all, event)
		}
		collected <- all
	}()
	outcome := worker.Run(executionContext, job, events)
	close(events)
	return outcome, <-collected
}

func eventsOfKind(events []pipeline.Event, kind pipeline.EventKind) []pipeline.Event {
	var matching []pipeline.Event
	for _, event := range events {
		if event.Kind == kind {
			matching = append(matching, event)
		}
	}
	return matching
}

func messages(events []pipeline.Event) []string {
	var lines []string
	for _, event := range eventsOfKind(events, pipeline.EventLog) {
		lines = append(lines, event.Message)
	}
	return lines
}
