package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ssupscaler/internal/config"
	"ssupscaler/internal/execshell"
	"ssupscaler/internal/media"
	"ssupscaler/internal/mocks"
	"ssupscaler/internal/pipeline"
)

const probeAt25FPS = `{"streams":[{"codec_type":"video","width":8,"height":8,"avg_frame_rate":"25/1","nb_frames":"3"}],"format":{"duration":"0.12"}}`

func TestWorkerImage(testInstance *testing.T) {
	testCases := []struct {
		name            string
		failImage       string
		expectedError   string
		expectedResults int
	}{
		{name: "success", expectedResults: 1},
		{name: "tool_failure", failImage: "vkCreateDevice failed -3", expectedError: "Image upscaling error: realesrgan-ncnn-vulkan exited with code 1: vkCreateDevice failed -3"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			toolchain := &fakeToolchain{frameSize: 8, scale: 2, failImage: testCase.failImage}
			harnessInstance := newHarness(testInstance, toolchain, false)
			settings := config.Defaults()
			input := harnessInstance.input(testInstance, "cat.png")
			job := pipeline.Job{Input: input, Output: media.OutputPath(input, harnessInstance.outputDir, settings), Settings: settings}

			outcome, events := runJob(context.Background(), harnessInstance.worker, job)

			require.Len(testInstance, eventsOfKind(events, pipeline.EventFinished), 1)
			require.Equal(testInstance, pipeline.EventFinished, events[len(events)-1].Kind)
			require.Len(testInstance, eventsOfKind(events, pipeline.EventResult), testCase.expectedResults)
			for _, event := range events {
				require.Equal(testInstance, input, event.File)
			}

			if len(testCase.expectedError) > 0 {
				require.Error(testInstance, outcome.Err)
				require.Equal(testInstance, pipeline.StatusFailed, outcome.Status())
				errorsSeen := eventsOfKind(events, pipeline.EventError)
				require.Len(testInstance, errorsSeen, 1)
				require.Equal(testInstance, testCase.expectedError, errorsSeen[0].Message)
				return
			}

			require.NoError(testInstance, outcome.Err)
			require.Equal(testInstance, media.KindImage, outcome.Kind)
			require.FileExists(testInstance, job.Output)
			require.Contains(testInstance, messages(events), "Resolution: 8x8 -> 16x16")
			require.Contains(testInstance, messages(events), "✓ Completed: cat_upscaled_x2.jpg")

			var percents []int
			for _, event := range eventsOfKind(events, pipeline.EventProgress) {
				percents = append(percents, event.Percent)
			}
			require.Equal(testInstance, []int{0, 50, 100}, percents)

			command := harnessInstance.runner.CommandsFor("realesrgan-ncnn-vulkan")[0]
			require.Equal(testInstance, "jpg", mocks.FlagValue(command, "-f"))
			require.Equal(testInstance, "400", mocks.FlagValue(command, "-t"))
			require.Equal(testInstance, "0", mocks.FlagValue(command, "-g"))
			require.Equal(testInstance, "2", mocks.FlagValue(command, "-s"))
		})
	}
}

func TestWorkerImageModelFallback(testInstance *testing.T) {
	harnessInstance := newHarness(testInstance, &fakeToolchain{frameSize: 8, scale: 2}, false)
	settings := config.Defaults()
	settings.Model = config.ModelGeneralX4
	input := harnessInstance.input(testInstance, "photo.png")
	job := pipeline.Job{Input: input, Output: filepath.Join(harnessInstance.outputDir, "photo_upscaled_x4.jpg"), Settings: settings}

	outcome, events := runJob(context.Background(), harnessInstance.worker, job)
	require.NoError(testInstance, outcome.Err)
	require.Contains(testInstance, messages(events), "Model 'realesrgan-x4plus' not found, using 'realesr-animevideov3-x2' instead")
	command := harnessInstance.runner.CommandsFor("realesrgan-ncnn-vulkan")[0]
	require.Equal(testInstance, "realesr-animevideov3", mocks.FlagValue(command, "-n"))
	require.Equal(testInstance, "2", mocks.FlagValue(command, "-s"))

	renamed := filepath.Join(harnessInstance.outputDir, "photo_upscaled_x2.jpg")
	require.Equal(testInstance, renamed, outcome.Job.Output)
	require.Equal(testInstance, renamed, mocks.FlagValue(command, "-o"))
	require.FileExists(testInstance, renamed)
	require.NoFileExists(testInstance, job.Output)
	require.Contains(testInstance, messages(events), "Output renamed to photo_upscaled_x2.jpg to match the x2 model")
	finished := eventsOfKind(events, pipeline.EventFinished)
	require.Len(testInstance, finished, 1)
	require.Equal(testInstance, renamed, finished[0].Output)
}

func TestWorkerVideo(testInstance *testing.T) {
	toolchain := &fakeToolchain{
		frameCount: 3,
		frameSize:  8,
		scale:      2,
		failFrames: map[string]bool{"frame_000002.png": true},
		writeAudio: true,
	}
	harnessInstance := newHarness(testInstance, toolchain, false)
	settings := config.Defaults()
	settings.Quality = 20
	input := filepath.Join(harnessInstance.inputDir, "episode.mkv")
	require.NoError(testInstance, os.WriteFile(input, []byte("mkv"), 0o644))
	job := pipeline.Job{Input: input, Output: media.OutputPath(input, harnessInstance.outputDir, settings), Settings: settings}

	outcome, events := runJob(context.Background(), harnessInstance.worker, job)

	require.NoError(testInstance, outcome.Err)
	require.Equal(testInstance, 1, outcome.FramesFailed)
	require.Equal(testInstance, filepath.Join(harnessInstance.outputDir, "episode_upscaled_x2.mkv"), job.Output)
	require.FileExists(testInstance, job.Output)
	require.Len(testInstance, eventsOfKind(events, pipeline.EventFinished), 1)
	require.Empty(testInstance, eventsOfKind(events, pipeline.EventError))

	logLines := messages(events)
	require.Contains(testInstance, logLines, "Extracting video frames...")
	require.Contains(testInstance, logLines, "Extracted 3 frames")
	require.Contains(testInstance, logLines, "Warning: Frame frame_000002.png failed to upscale, using Lanczos resize instead")
	require.Contains(testInstance, logLines, "Reassembling video...")
	require.Contains(testInstance, logLines, "✓ Video upscaling completed: episode_upscaled_x2.mkv")

	var percents []int
	for _, event := range eventsOfKind(events, pipeline.EventProgress) {
		percents = append(percents, event.Percent)
	}
	require.Equal(testInstance, []int{0, 33, 66, 100, 100}, percents)

	ffmpegCommands := harnessInstance.runner.CommandsFor("ffmpeg")
	require.Len(testInstance, ffmpegCommands, 3)
	reassemble := ffmpegCommands[2]
	require.Equal(testInstance, "24", mocks.FlagValue(reassemble, "-framerate"))
	require.Equal(testInstance, "20", mocks.FlagValue(reassemble, "-crf"))
	require.True(testInstance, mocks.HasFlag(reassemble, "-shortest"))
	require.Equal(testInstance, "aac", mocks.FlagValue(reassemble, "-c:a"))

	for _, command := range harnessInstance.runner.CommandsFor("realesrgan-ncnn-vulkan") {
		require.False(testInstance, mocks.HasFlag(command, "-f"))
	}

	entries, err := os.ReadDir(harnessInstance.scratch)
	require.NoError(testInstance, err)
	require.Empty(testInstance, entries)
}

func TestWorkerVideoFrameRate(testInstance *testing.T) {
	testCases := []struct {
		name          string
		withProbe     bool
		fps           int
		expectedRate  string
		expectedError error
	}{
		{name: "explicit_fps", fps: 30, expectedRate: "30"},
		{name: "source_fps_probed", withProbe: true, fps: 0, expectedRate: "25"},
		{name: "source_fps_without_ffprobe", fps: 0, expectedError: pipeline.ErrUnknownFrameRate},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			toolchain := &fakeToolchain{frameCount: 3, frameSize: 8, scale: 2, probeOutput: probeAt25FPS}
			harnessInstance := newHarness(testInstance, toolchain, testCase.withProbe)
			settings := config.Defaults()
			settings.FPS = testCase.fps
			input := filepath.Join(harnessInstance.inputDir, "clip.mp4")
			require.NoError(testInstance, os.WriteFile(input, []byte("mp4"), 0o644))
			job := pipeline.Job{Input: input, Output: media.OutputPath(input, harnessInstance.outputDir, settings), Settings: settings}

			outcome, events := runJob(context.Background(), harnessInstance.worker, job)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, outcome.Err, testCase.expectedError)
				require.Len(testInstance, eventsOfKind(events, pipeline.EventError), 1)
				require.Empty(testInstance, harnessInstance.runner.CommandsFor("ffmpeg"))
				return
			}
			require.NoError(testInstance, outcome.Err)
			require.Contains(testInstance, messages(events), "No audio track found, output will be silent")
			reassemble := harnessInstance.runner.CommandsFor("ffmpeg")[2]
			require.Equal(testInstance, testCase.expectedRate, mocks.FlagValue(reassemble, "-framerate"))
			require.False(testInstance, mocks.HasFlag(reassemble, "-shortest"))
		})
	}
}

func TestWorkerVideoCancelled(testInstance *testing.T) {
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()

	toolchain := &fakeToolchain{frameCount: 5, frameSize: 8, scale: 2}
	upscaled := 0
	toolchain.onRealESRGAN = func(execshell.ShellCommand) {
		upscaled++
		if upscaled == 2 {
			cancel()
		}
	}
	harnessInstance := newHarness(testInstance, toolchain, false)
	settings := config.Defaults()
	input := filepath.Join(harnessInstance.inputDir, "long.mp4")
	require.NoError(testInstance, os.WriteFile(input, []byte("mp4"), 0o644))
	job := pipeline.Job{Input: input, Output: media.OutputPath(input, harnessInstance.outputDir, settings), Settings: settings}

	outcome, events := runJob(executionContext, harnessInstance.worker, job)

	require.True(testInstance, outcome.Cancelled)
	require.Equal(testInstance, pipeline.StatusCancelled, outcome.Status())
	require.Empty(testInstance, eventsOfKind(events, pipeline.EventError))
	require.Len(testInstance, eventsOfKind(events, pipeline.EventFinished), 1)
	require.Contains(testInstance, messages(events), "Cancelled: long.mp4")
	require.Len(testInstance, harnessInstance.runner.CommandsFor("realesrgan-ncnn-vulkan"), 2)
	require.NoFileExists(testInstance, job.Output)

	entries, err := os.ReadDir(harnessInstance.scratch)
	require.NoError(testInstance, err)
	require.Empty(testInstance, entries)
}

func TestWorkerCancelledOutputCleanup(testInstance *testing.T) {
	testCases := []struct {
		name           string
		existingOutput bool
		cancelAt       string
		expectOutput   bool
		expectContent  string
	}{
		{name: "earlier_output_kept", existingOutput: true, cancelAt: "frames", expectOutput: true, expectContent: "earlier run"},
		{name: "partial_output_removed", cancelAt: "reassemble", expectOutput: false},
		{name: "overwritten_output_removed", existingOutput: true, cancelAt: "reassemble", expectOutput: false},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executionContext, cancel := context.WithCancel(context.Background())
			defer cancel()

			toolchain := &fakeToolchain{frameCount: 3, frameSize: 8, scale: 2}
			switch testCase.cancelAt {
			case "frames":
				toolchain.onRealESRGAN = func(execshell.ShellCommand) { cancel() }
			case "reassemble":
				toolchain.onReassemble = cancel
			}
			harnessInstance := newHarness(testInstance, toolchain, false)
			settings := config.Defaults()
			input := filepath.Join(harnessInstance.inputDir, "clip.mp4")
			require.NoError(testInstance, os.WriteFile(input, []byte("mp4"), 0o644))
			job := pipeline.Job{Input: input, Output: media.OutputPath(input, harnessInstance.outputDir, settings), Settings: settings}
			if testCase.existingOutput {
				require.NoError(testInstance, os.WriteFile(job.Output, []byte("earlier run"), 0o644))
			}

			outcome, events := runJob(executionContext, harnessInstance.worker, job)

			require.True(testInstance, outcome.Cancelled)
			require.Contains(testInstance, messages(events), "Cancelled: clip.mp4")
			if !testCase.expectOutput {
				require.NoFileExists(testInstance, job.Output)
				return
			}
			content, err := os.ReadFile(job.Output)
			require.NoError(testInstance, err)
			require.Equal(testInstance, testCase.expectContent, string(content))
		})
	}
}

func TestWorkerUnsupportedFile(testInstance *testing.T) {
	harnessInstance := newHarness(testInstance, &fakeToolchain{}, false)
	job := pipeline.Job{Input: "notes.txt", Output: "out.txt", Settings: config.Defaults()}

	outcome, events := runJob(context.Background(), harnessInstance.worker, job)
	require.Error(testInstance, outcome.Err)
	require.Len(testInstance, eventsOfKind(events, pipeline.EventError), 1)
	require.Empty(testInstance, harnessInstance.runner.Recorded())
}
