package ui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"ssupscaler/internal/config"
	"ssupscaler/internal/pipeline"
	"ssupscaler/internal/tools"
	"ssupscaler/internal/video"
)

func row(label, value string) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(value)
}

// RenderVideoInfo renders the probed properties of a video.
func RenderVideoInfo(info video.Info) string {
	audio := "No"
	if info.HasAudio {
		audio = "Yes"
	}
	rows := []string{
		row("📁 File:", filepath.Base(info.Path)),
		row("📊 Size:", FormatFileSize(info.FileSize)),
		row("📐 Dimensions:", fmt.Sprintf("%dx%d", info.Width, info.Height)),
		row("🎬 Format:", info.Format),
		row("🎞️  Codec:", info.Codec),
		row("⚡ Bitrate:", formatBitrate(info.Bitrate)),
		row("⏱️  Duration:", FormatTime(info.Duration)),
		row("🔁 Frame rate:", formatFrameRate(info.FrameRate)),
		row("🖼️  Frames:", strconv.Itoa(info.Frames)),
		row("🔊 Audio:", audio),
	}
	return infoStyle.Render(strings.Join(rows, "\n"))
}

// RenderSettings renders the effective settings.
func RenderSettings(settings config.Settings) string {
	gpu := "Off"
	if settings.UseGPU {
		gpu = fmt.Sprintf("On (device %d)", settings.GPUDevice)
	}
	tile := strconv.Itoa(settings.TileSize)
	if settings.TileSize == 0 {
		tile = "Auto"
	}
	fps := strconv.Itoa(settings.FPS)
	if settings.FPS == 0 {
		fps = "Source"
	}
	output := settings.OutputDir
	if output == "" {
		output = "(not set)"
	}
	rows := []string{
		row("Model:", fmt.Sprintf("%s (%s)", config.QuickLabel(settings.Model), settings.Model)),
		row("GPU:", gpu),
		row("Tile size:", tile),
		row("Video FPS:", fps),
		row("Video quality (CRF):", strconv.Itoa(settings.Quality)),
		row("Image format:", settings.Format),
		row("Frame timeout:", settings.FrameTimeout.String()),
		row("Output folder:", output),
	}
	return infoStyle.Render(strings.Join(rows, "\n"))
}

// RenderDependencyError lists every missing dependency from an aggregated
// CheckDependencies error.
func RenderDependencyError(err error) string {
	lines := []string{ErrorStyle.Render("❌ Missing dependencies")}
	for _, failure := range multierr.Errors(err) {
		lines = append(lines, "  • "+failure.Error())
	}
	return errorBoxStyle.Render(strings.Join(lines, "\n"))
}

// RenderDependencies reports the resolved tool paths.
func RenderDependencies(dependencies tools.Dependencies) string {
	ffprobe := dependencies.FFprobe
	if ffprobe == "" {
		ffprobe = "not found (fps 0 unavailable)"
	}
	rows := []string{
		SuccessStyle.Render("✅ All dependencies found"),
		row("Real-ESRGAN:", dependencies.RealESRGAN),
		row("FFmpeg:", dependencies.FFmpeg),
		row("FFprobe:", ffprobe),
		row("Models:", fmt.Sprintf("%s (%d installed)", dependencies.ModelsDir, len(dependencies.Models))),
	}
	return infoStyle.Render(strings.Join(rows, "\n"))
}

// RenderModels lists the known models with their installation state,
// followed by any other installed models.
func RenderModels(installed []string) string {
	present := make(map[string]bool, len(installed))
	for _, model := range installed {
		present[model] = true
	}

	var lines []string
	for _, model := range config.Models {
		mark := ErrorStyle.Render("✗")
		if present[model] {
			mark = SuccessStyle.Render("✓")
		}
		lines = append(lines, fmt.Sprintf("%s %-24s %s", mark, config.QuickLabel(model), mutedStyle.Render(model)))
		delete(present, model)
	}
	for _, model := range installed {
		if present[model] {
			lines = append(lines, fmt.Sprintf("%s %-24s %s", SuccessStyle.Render("✓"), "Other", mutedStyle.Render(model)))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderSummary renders the end-of-batch report.
func RenderSummary(summary pipeline.Summary) string {
	title := SuccessStyle.Render(fmt.Sprintf("Successfully processed %d files in %s", summary.Succeeded, FormatTime(summary.Elapsed.Seconds())))
	if summary.Stopped {
		title = WarningStyle.Render(fmt.Sprintf("Stopped after %s", FormatTime(summary.Elapsed.Seconds())))
	} else if summary.Failed > 0 {
		title = ErrorStyle.Render(fmt.Sprintf("Processed %d of %d files in %s", summary.Succeeded, summary.Total, FormatTime(summary.Elapsed.Seconds())))
	}
	rows := []string{
		title,
		row("Succeeded:", strconv.Itoa(summary.Succeeded)),
		row("Failed:", strconv.Itoa(summary.Failed)),
		row("Cancelled:", strconv.Itoa(summary.Cancelled)),
	}
	for _, output := range summary.Outputs {
		rows = append(rows, "  → "+output)
	}
	return infoStyle.Render(strings.Join(rows, "\n"))
}
