package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"ssupscaler/internal/config"
	"ssupscaler/internal/execshell"
	"ssupscaler/internal/ffmpeg"
	"ssupscaler/internal/media"
	"ssupscaler/internal/tools"
	"ssupscaler/internal/upscaling"
	"ssupscaler/internal/video"
	"ssupscaler/internal/workspace"
)

// ErrUnknownFrameRate is returned when the output frame rate is set to follow
// the source but the source rate cannot be probed.
var ErrUnknownFrameRate = errors.New("source frame rate unknown; set an explicit fps or install ffprobe")

// Executor runs a subprocess to completion.
type Executor interface {
	Execute(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error)
}

// Job is one file to upscale.
type Job struct {
	Input    string
	Output   string
	Settings config.Settings
}

// Outcome is what happened to a Job.
type Outcome struct {
	Job          Job
	Kind         media.Kind
	Err          error
	Cancelled    bool
	FramesFailed int
	Elapsed      time.Duration
}

// Status labels the outcome for metrics and summaries.
func (outcome Outcome) Status() string {
	switch {
	case outcome.Cancelled:
		return StatusCancelled
	case outcome.Err != nil:
		return StatusFailed
	default:
		return StatusCompleted
	}
}

// Worker upscales single files. It holds no per-job state, so one Worker can
// serve a whole batch.
type Worker struct {
	logger    *zap.Logger
	upscaler  *upscaling.Upscaler
	ffmpeg    *ffmpeg.Tool
	prober    *video.Prober
	scratch   *workspace.Manager
	models    []string
	observer  Observer
	clock     func() time.Time
	fallback  func(inputPath, outputPath string, scale int) error
	dimension func(path string) (media.Dimensions, error)
}

// NewWorker wires a worker to the resolved external dependencies.
func NewWorker(logger *zap.Logger, executor Executor, dependencies tools.Dependencies, scratch *workspace.Manager) *Worker {
	worker := &Worker{
		logger:    logger,
		upscaler:  upscaling.NewUpscaler(executor, dependencies.RealESRGAN, dependencies.ModelsDir),
		ffmpeg:    ffmpeg.NewTool(executor, dependencies.FFmpeg),
		scratch:   scratch,
		models:    append([]string(nil), dependencies.Models...),
		observer:  noopObserver{},
		clock:     time.Now,
		fallback:  media.ResizeFallback,
		dimension: media.ImageDimensions,
	}
	if len(dependencies.FFprobe) > 0 {
		worker.prober = video.NewProber(executor, dependencies.FFprobe)
	}
	return worker
}

// WithObserver registers a statistics observer.
func (worker *Worker) WithObserver(observer Observer) *Worker {
	if observer == nil {
		observer = noopObserver{}
	}
	worker.observer = observer
	return worker
}

type emitter struct {
	file   string
	events chan<- Event
}

func (sink emitter) send(event Event) {
	if sink.events == nil {
		return
	}
	event.File = sink.file
	sink.events <- event
}

func (sink emitter) log(format string, arguments ...any) {
	sink.send(Event{Kind: EventLog, Message: fmt.Sprintf(format, arguments...)})
}

func (sink emitter) progress(percent int) {
	sink.send(Event{Kind: EventProgress, Percent: percent})
}

// Run processes job and always finishes with exactly one EventFinished.
func (worker *Worker) Run(executionContext context.Context, job Job, events chan<- Event) Outcome {
	sink := emitter{file: job.Input, events: events}
	startedAt := worker.clock()
	outcome := Outcome{Job: job, Kind: media.Classify(job.Input)}

	var runError error
	errorPrefix := "Upscaling error: "
	switch outcome.Kind {
	case media.KindVideo:
		errorPrefix = "Video upscaling error: "
	case media.KindImage:
		errorPrefix = "Image upscaling error: "
	default:
		runError = fmt.Errorf("unsupported file type %q", filepath.Ext(job.Input))
	}

	var before outputSnapshot
	if runError == nil {
		var options upscaling.Options
		options, runError = worker.options(job.Settings, sink)
		if runError == nil {
			job = worker.retarget(job, options.Model, sink)
			outcome.Job = job
			before = snapshotOutput(job.Output)
			if outcome.Kind == media.KindVideo {
				outcome.FramesFailed, runError = worker.runVideo(executionContext, job, options, sink)
			} else {
				runError = worker.runImage(executionContext, job, options, sink)
			}
		}
	}
	outcome.Elapsed = worker.clock().Sub(startedAt)

	name := filepath.Base(job.Input)
	switch {
	case runError == nil:
	case executionContext.Err() != nil || errors.Is(runError, context.Canceled):
		outcome.Cancelled = true
		worker.removePartialOutput(job.Output, before, sink)
		sink.log("Cancelled: %s", name)
		worker.logger.Info("job cancelled", zap.String("input", job.Input))
	default:
		outcome.Err = runError
		sink.send(Event{Kind: EventError, Message: errorPrefix + runError.Error()})
		worker.logger.Warn("job failed", zap.String("input", job.Input), zap.Error(runError))
	}

	worker.observer.FileFinished(outcome.Kind, outcome.Status(), outcome.Elapsed)
	sink.send(Event{Kind: EventFinished, Output: job.Output, Elapsed: outcome.Elapsed})
	return outcome
}

// retarget renames the output when the model actually used upscales by a
// different factor than the requested one, so the xN in the name stays true.
func (worker *Worker) retarget(job Job, model string, sink emitter) Job {
	used := config.ScaleLabel(model)
	if used == config.ScaleLabel(job.Settings.Model) {
		return job
	}
	settings := job.Settings
	settings.Model = model
	job.Output = media.OutputPath(job.Input, filepath.Dir(job.Output), settings)
	sink.log("Output renamed to %s to match the %s model", filepath.Base(job.Output), used)
	return job
}

// outputSnapshot is the state of an output path before a job ran.
type outputSnapshot struct {
	existed  bool
	size     int64
	modified time.Time
}

func snapshotOutput(path string) outputSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return outputSnapshot{}
	}
	return outputSnapshot{existed: true, size: info.Size(), modified: info.ModTime()}
}

// writtenSince reports whether path was created or rewritten after the snapshot.
func (snapshot outputSnapshot) writtenSince(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if !snapshot.existed {
		return true
	}
	return info.Size() != snapshot.size || !info.ModTime().Equal(snapshot.modified)
}

// removePartialOutput deletes an output the cancelled job wrote. Files that
// were already there and left untouched are kept.
func (worker *Worker) removePartialOutput(path string, before outputSnapshot, sink emitter) {
	if len(path) == 0 || !before.writtenSince(path) {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		sink.log("Warning: Could not remove partial output %s: %v", filepath.Base(path), err)
		worker.logger.Warn("partial output removal failed", zap.String("output", path), zap.Error(err))
	}
}

func (worker *Worker) runImage(executionContext context.Context, job Job, options upscaling.Options, sink emitter) error {
	sink.log("Processing: %s", filepath.Base(job.Input))
	sink.progress(0)
	err := worker.upscaler.UpscaleImage(executionContext, job.Input, job.Output, options, func(current, total int, _ string) {
		sink.progress(Percent(current, total))
	})
	if err != nil {
		return err
	}

	if before, beforeErr := worker.dimension(job.Input); beforeErr == nil {
		if after, afterErr := worker.dimension(job.Output); afterErr == nil {
			sink.log("Resolution: %s -> %s", before, after)
		}
	}
	sink.log("✓ Completed: %s", filepath.Base(job.Output))
	sink.send(Event{Kind: EventResult, Output: job.Output})
	return nil
}

func (worker *Worker) runVideo(executionContext context.Context, job Job, options upscaling.Options, sink emitter) (int, error) {
	if !worker.ffmpeg.IsAvailable() {
		return 0, tools.ErrFFmpegNotFound
	}

	sink.log("Processing: %s", filepath.Base(job.Input))
	sink.progress(0)

	info, probed := worker.probe(executionContext, job.Input)
	fps := float64(job.Settings.FPS)
	if fps == 0 {
		if !probed || info.FrameRate <= 0 {
			return 0, ErrUnknownFrameRate
		}
		fps = info.FrameRate
		sink.log("Using source frame rate: %s fps", ffmpeg.FormatFPS(fps))
	}

	if probed && info.Frames > 0 {
		required := workspace.EstimateFrameStorage(info.Width, info.Height, info.Frames, options.Scale)
		if err := worker.scratch.CheckDiskSpace(required); err != nil {
			return 0, err
		}
	}

	session, err := worker.scratch.CreateSession()
	if err != nil {
		return 0, err
	}
	defer func() {
		if cleanupError := session.Cleanup(); cleanupError != nil {
			sink.log("Warning: Could not clean up temporary files: %v", cleanupError)
		}
	}()

	sink.log("Extracting video frames...")
	if err := worker.ffmpeg.ExtractFrames(executionContext, job.Input, workspace.FramePattern(session.FramesDir)); err != nil {
		return 0, err
	}
	frames, err := workspace.Frames(session.FramesDir)
	if err != nil {
		return 0, err
	}
	if len(frames) == 0 {
		return 0, upscaling.ErrNoFrames
	}

	sink.log("Extracted %d frames", len(frames))
	sink.log("Upscaling frames...")
	lastFailed := false
	failed, err := worker.upscaler.UpscaleFrames(executionContext, frames, session.UpscaledDir, options,
		func(current, total int, _ string) {
			if !lastFailed {
				worker.observer.FrameProcessed(false)
			}
			lastFailed = false
			sink.progress(Percent(current, total))
		},
		func(failure upscaling.FrameFailure) error {
			lastFailed = true
			worker.observer.FrameProcessed(true)
			sink.log("Warning: Frame %s failed to upscale, using Lanczos resize instead", failure.Frame)
			worker.logger.Warn("frame upscale failed", zap.String("frame", failure.Frame), zap.Error(failure.Err))
			source := filepath.Join(session.FramesDir, failure.Frame)
			target := filepath.Join(session.UpscaledDir, failure.Frame)
			if fallbackError := worker.fallback(source, target, options.Scale); fallbackError != nil {
				return fmt.Errorf("frame %s could not be upscaled: %w", failure.Frame, fallbackError)
			}
			return nil
		})
	if err != nil {
		return failed, err
	}

	sink.log("Reassembling video...")
	audioPath := session.AudioPath()
	hasAudio, err := worker.ffmpeg.ExtractAudio(executionContext, job.Input, audioPath)
	if err != nil {
		return failed, err
	}
	if !hasAudio {
		sink.log("No audio track found, output will be silent")
		audioPath = ""
	}

	err = worker.ffmpeg.Reassemble(executionContext, ffmpeg.ReassembleOptions{
		FramePattern: workspace.FramePattern(session.UpscaledDir),
		AudioPath:    audioPath,
		OutputPath:   job.Output,
		FPS:          fps,
		CRF:          job.Settings.Quality,
	})
	if err != nil {
		return failed, err
	}
	if _, err := os.Stat(job.Output); err != nil {
		return failed, fmt.Errorf("video processing completed but output file was not created: %s", job.Output)
	}

	sink.progress(100)
	sink.log("✓ Video upscaling completed: %s", filepath.Base(job.Output))
	sink.send(Event{Kind: EventResult, Output: job.Output})
	return failed, nil
}

func (worker *Worker) probe(executionContext context.Context, path string) (video.Info, bool) {
	if worker.prober == nil {
		return video.Info{}, false
	}
	info, err := worker.prober.Probe(executionContext, path)
	if err != nil {
		worker.logger.Debug("ffprobe failed", zap.String("input", path), zap.Error(err))
		return video.Info{}, false
	}
	return info, true
}
