package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ssupscaler/internal/execshell"
	"ssupscaler/internal/media"
	"ssupscaler/internal/tools"
	"ssupscaler/internal/ui"
	"ssupscaler/internal/video"
)

func (application *Application) newCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that Real-ESRGAN, FFmpeg and the models are installed",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			dependencies, err := application.locatorProvider().CheckDependencies()
			if err != nil {
				fmt.Fprintln(command.OutOrStdout(), ui.RenderDependencyError(err))
				return err
			}
			fmt.Fprintln(command.OutOrStdout(), ui.RenderDependencies(dependencies))
			return nil
		},
	}
}

func (application *Application) newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the Real-ESRGAN models and which are installed",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			locator := application.locatorProvider()
			executable, err := locator.FindRealESRGAN()
			if err != nil {
				return err
			}
			modelsDir, err := locator.FindModelsDir(executable)
			if err != nil {
				return err
			}
			installed, err := tools.AvailableModels(modelsDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(command.OutOrStdout(), ui.TitleStyle.Render("Models in "+modelsDir))
			fmt.Fprintln(command.OutOrStdout(), ui.RenderModels(installed))
			return nil
		},
	}
}

func (application *Application) newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Show resolution and stream details of an image or video",
		Args:  cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			path := arguments[0]
			switch media.Classify(path) {
			case media.KindImage:
				dimensions, err := media.ImageDimensions(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(command.OutOrStdout(), "%s: %s\n", filepath.Base(path), dimensions)
				return nil
			case media.KindVideo:
				return application.showVideoInfo(command, path)
			default:
				return fmt.Errorf("unsupported file type %q", filepath.Ext(path))
			}
		},
	}
}

func (application *Application) showVideoInfo(command *cobra.Command, path string) error {
	locator := application.locatorProvider()
	ffmpegPath, _ := locator.FindFFmpeg()
	ffprobePath, err := locator.FindFFprobe(ffmpegPath)
	if err != nil {
		return err
	}
	executor, err := execshell.NewShellExecutor(application.logger, application.commandRunner)
	if err != nil {
		return err
	}
	info, err := video.NewProber(executor, ffprobePath).Probe(command.Context(), path)
	if err != nil {
		return err
	}
	fmt.Fprintln(command.OutOrStdout(), ui.RenderVideoInfo(info))
	return nil
}
