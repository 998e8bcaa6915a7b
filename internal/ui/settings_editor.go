package ui

import (
	"fmt"

	"ssupscaler/internal/config"
)

// Prompt labels used by EditSettings.
const (
	LabelModel        = "Model"
	LabelUseGPU       = "Use GPU"
	LabelGPUDevice    = "GPU device"
	LabelTileSize     = "Tile size (0 = auto)"
	LabelFPS          = "Video FPS (0 = source)"
	LabelQuality      = "Video quality (CRF, lower is better)"
	LabelFormat       = "Image format"
	LabelOutputFolder = "Output folder"

	maxGPUDevice = 15
)

// EditSettings walks the user through every setting, starting from current.
// The result is validated; current is returned unchanged on error.
func EditSettings(prompter Prompter, current config.Settings) (config.Settings, error) {
	edited := current

	label, err := prompter.Select(LabelModel, config.QuickLabels(), config.QuickLabel(current.Model))
	if err != nil {
		return current, err
	}
	model, found := config.ModelForLabel(label)
	if !found {
		return current, fmt.Errorf("unknown model %q", label)
	}
	edited.Model = model

	if edited.UseGPU, err = prompter.Confirm(LabelUseGPU, current.UseGPU); err != nil {
		return current, err
	}
	if edited.UseGPU {
		if edited.GPUDevice, err = prompter.Int(LabelGPUDevice, current.GPUDevice, 0, maxGPUDevice); err != nil {
			return current, err
		}
	}
	if edited.TileSize, err = prompter.Int(LabelTileSize, current.TileSize, config.MinTileSize, config.MaxTileSize); err != nil {
		return current, err
	}
	if edited.FPS, err = prompter.Int(LabelFPS, current.FPS, config.MinFPS, config.MaxFPS); err != nil {
		return current, err
	}
	if edited.Quality, err = prompter.Int(LabelQuality, current.Quality, config.MinQuality, config.MaxQuality); err != nil {
		return current, err
	}
	if edited.Format, err = prompter.Select(LabelFormat, config.Formats, current.Format); err != nil {
		return current, err
	}
	if edited.OutputDir, err = prompter.String(LabelOutputFolder, current.OutputDir); err != nil {
		return current, err
	}

	if err := edited.Validate(); err != nil {
		return current, err
	}
	return edited, nil
}
