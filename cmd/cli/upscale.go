package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ssupscaler/internal/config"
	"ssupscaler/internal/execshell"
	"ssupscaler/internal/logging"
	"ssupscaler/internal/media"
	"ssupscaler/internal/metrics"
	"ssupscaler/internal/pipeline"
	"ssupscaler/internal/ui"
	"ssupscaler/internal/workspace"
)

const (
	outputFlagName        = "output"
	modelFlagName         = "model"
	tileFlagName          = "tile"
	fpsFlagName           = "fps"
	crfFlagName           = "crf"
	formatFlagName        = "format"
	gpuFlagName           = "gpu"
	gpuDeviceFlagName     = "gpu-device"
	frameTimeoutFlagName  = "frame-timeout"
	saveLogFlagName       = "save-log"
	metricsListenFlagName = "metrics-listen"
	saveSettingsFlagName  = "save-settings"

	staleSessionAge = 24 * time.Hour
	eventBufferSize = 64
)

type upscaleOptions struct {
	outputDir      string
	model          string
	tileSize       int
	fps            int
	quality        int
	format         string
	useGPU         bool
	gpuDevice      int
	frameTimeout   time.Duration
	saveLogPath    string
	metricsAddress string
	saveSettings   bool
}

func (application *Application) newUpscaleCommand() *cobra.Command {
	options := &upscaleOptions{}
	command := &cobra.Command{
		Use:   "upscale [files or folders...]",
		Short: "Upscale the given images and videos",
		Long:  "Queues every supported file (folders are searched recursively), checks the external tools and processes the queue one file at a time. Ctrl-C stops after the current step.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runUpscale(command, arguments, options)
		},
	}

	defaults := config.Defaults()
	flags := command.Flags()
	flags.StringVarP(&options.outputDir, outputFlagName, "o", "", "Output folder.")
	flags.StringVarP(&options.model, modelFlagName, "m", defaults.Model, "Model name or quick label, e.g. \"Anime Photos 4x\".")
	flags.IntVar(&options.tileSize, tileFlagName, defaults.TileSize, "Tile size, 0 lets Real-ESRGAN decide.")
	flags.IntVar(&options.fps, fpsFlagName, defaults.FPS, "Output video frame rate, 0 keeps the source rate.")
	flags.IntVar(&options.quality, crfFlagName, defaults.Quality, "Output video quality (libx264 CRF, 0-51).")
	flags.StringVar(&options.format, formatFlagName, defaults.Format, "Output image format (jpg, png, webp).")
	flags.BoolVar(&options.useGPU, gpuFlagName, defaults.UseGPU, "Run Real-ESRGAN on the GPU.")
	flags.IntVar(&options.gpuDevice, gpuDeviceFlagName, defaults.GPUDevice, "GPU device index.")
	flags.DurationVar(&options.frameTimeout, frameTimeoutFlagName, defaults.FrameTimeout, "Per-frame time limit, 0 disables it.")
	flags.StringVar(&options.saveLogPath, saveLogFlagName, "", "Write the activity log to this file when done.")
	flags.StringVar(&options.metricsAddress, metricsListenFlagName, "", "Serve Prometheus metrics on this address while processing, e.g. :9090.")
	flags.BoolVar(&options.saveSettings, saveSettingsFlagName, false, "Persist the effective settings before processing.")
	return command
}

// apply overlays explicitly set flags on the configured settings.
func (options *upscaleOptions) apply(flags interface{ Changed(string) bool }, settings config.Settings) (config.Settings, error) {
	if flags.Changed(outputFlagName) {
		settings.OutputDir = options.outputDir
	}
	if flags.Changed(modelFlagName) {
		model, err := resolveModel(options.model)
		if err != nil {
			return settings, err
		}
		settings.Model = model
	}
	if flags.Changed(tileFlagName) {
		settings.TileSize = options.tileSize
	}
	if flags.Changed(fpsFlagName) {
		settings.FPS = options.fps
	}
	if flags.Changed(crfFlagName) {
		settings.Quality = options.quality
	}
	if flags.Changed(formatFlagName) {
		settings.Format = options.format
	}
	if flags.Changed(gpuFlagName) {
		settings.UseGPU = options.useGPU
	}
	if flags.Changed(gpuDeviceFlagName) {
		settings.GPUDevice = options.gpuDevice
	}
	if flags.Changed(frameTimeoutFlagName) {
		settings.FrameTimeout = options.frameTimeout
	}
	return settings, nil
}

func resolveModel(value string) (string, error) {
	if config.IsKnownModel(value) {
		return value, nil
	}
	if model, found := config.ModelForLabel(value); found {
		return model, nil
	}
	return "", fmt.Errorf("unknown model %q", value)
}

func (application *Application) runUpscale(command *cobra.Command, arguments []string, options *upscaleOptions) error {
	out := command.OutOrStdout()
	settings, err := options.apply(command.Flags(), application.configuration.Settings)
	if err != nil {
		return err
	}

	journal := logging.NewJournal()
	console := ui.NewConsole(out, journal, application.terminalDetector())

	queue := media.NewQueue()
	added, skipped := queue.Add(arguments...)
	for _, skip := range skipped {
		console.Log(fmt.Sprintf("Skipped %s: %s", skip.Path, skip.Reason))
	}
	if added > 0 {
		console.Log(fmt.Sprintf("Added %d files to queue", added))
	}

	if err := pipeline.Validate(queue.Items(), settings); err != nil {
		return err
	}

	dependencies, err := application.locatorProvider().CheckDependencies()
	if err != nil {
		fmt.Fprintln(command.ErrOrStderr(), ui.RenderDependencyError(err))
		return err
	}

	if options.saveSettings {
		path, err := application.saveSettings(settings)
		if err != nil {
			return err
		}
		console.Log("Settings saved to: " + path)
	}

	scratch := workspace.NewManager(application.scratchRoot)
	if removed, sweepError := scratch.SweepStale(staleSessionAge, application.clock()); sweepError != nil {
		application.logger.Warn("stale session cleanup failed", zap.Error(sweepError))
	} else if len(removed) > 0 {
		application.logger.Info("removed stale sessions", zap.Int("count", len(removed)))
	}

	executor, err := execshell.NewShellExecutor(application.logger, application.commandRunner)
	if err != nil {
		return err
	}

	var observer pipeline.Observer
	if len(options.metricsAddress) > 0 {
		server, err := metrics.Listen(options.metricsAddress, application.logger)
		if err != nil {
			return fmt.Errorf("unable to start metrics server: %w", err)
		}
		metricsContext, stopMetrics := context.WithCancel(command.Context())
		served := make(chan error, 1)
		go func() {
			served <- server.Serve(metricsContext)
		}()
		defer func() {
			stopMetrics()
			<-served
		}()
		executor.WithObserver(metrics.NewCommandObserver())
		observer = metrics.NewPipelineObserver()
		console.Log("Metrics available at http://" + server.Address() + "/metrics")
	}

	worker := pipeline.NewWorker(application.logger, executor, dependencies, scratch).WithObserver(observer)
	processor := pipeline.NewProcessor(application.logger, worker).WithObserver(observer)

	events := make(chan pipeline.Event, eventBufferSize)
	consumed := make(chan struct{})
	go func() {
		console.Consume(events)
		close(consumed)
	}()

	signalContext, stopSignals := application.signalContext(command.Context())
	defer stopSignals()
	finished := make(chan struct{})
	go func() {
		select {
		case <-signalContext.Done():
			application.logger.Info("interrupt received, stopping")
			if !processor.Stop() {
				application.logger.Warn("processing did not stop within the grace period")
			}
		case <-finished:
		}
	}()

	summary, runError := processor.Run(command.Context(), queue.Items(), settings, events)
	close(finished)
	<-consumed
	if runError != nil {
		return runError
	}

	fmt.Fprintln(out, ui.RenderSummary(summary))
	if len(options.saveLogPath) > 0 {
		if err := journal.Save(options.saveLogPath); err != nil {
			return err
		}
		fmt.Fprintln(out, "Log saved to: "+options.saveLogPath)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total)
	}
	return nil
}
