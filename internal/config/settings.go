package config

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Setting bounds and defaults.
const (
	DefaultModel        = ModelAnimeVideoX2
	DefaultUseGPU       = true
	DefaultGPUDevice    = 0
	DefaultTileSize     = 400
	DefaultFPS          = 24
	DefaultQuality      = 18
	DefaultFormat       = "jpg"
	DefaultFrameTimeout = 5 * time.Minute

	MinTileSize = 0
	MaxTileSize = 2048
	MinFPS      = 0
	MaxFPS      = 120
	MinQuality  = 0
	MaxQuality  = 51
)

// Formats lists the image formats Real-ESRGAN can write.
var Formats = []string{"jpg", "png", "webp"}

// Settings is the per-job record passed to every upscaling worker.
type Settings struct {
	Model     string `mapstructure:"model" yaml:"model"`
	UseGPU    bool   `mapstructure:"use_gpu" yaml:"use_gpu"`
	GPUDevice int    `mapstructure:"gpu_device" yaml:"gpu_device"`
	// TileSize 0 lets Real-ESRGAN choose.
	TileSize int `mapstructure:"tile_size" yaml:"tile_size"`
	// FPS 0 reuses the source frame rate.
	FPS int `mapstructure:"fps" yaml:"fps"`
	// Quality is the libx264 CRF.
	Quality      int           `mapstructure:"quality" yaml:"quality"`
	Format       string        `mapstructure:"format" yaml:"format"`
	OutputDir    string        `mapstructure:"output_dir" yaml:"output_dir"`
	FrameTimeout time.Duration `mapstructure:"frame_timeout" yaml:"frame_timeout"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Model:        DefaultModel,
		UseGPU:       DefaultUseGPU,
		GPUDevice:    DefaultGPUDevice,
		TileSize:     DefaultTileSize,
		FPS:          DefaultFPS,
		Quality:      DefaultQuality,
		Format:       DefaultFormat,
		FrameTimeout: DefaultFrameTimeout,
	}
}

// Validate reports every out-of-range field at once.
func (settings Settings) Validate() error {
	var validationError error
	if !IsKnownModel(settings.Model) {
		validationError = multierr.Append(validationError, fmt.Errorf("unknown model %q", settings.Model))
	}
	if settings.GPUDevice < 0 {
		validationError = multierr.Append(validationError, fmt.Errorf("gpu device must not be negative, got %d", settings.GPUDevice))
	}
	if settings.TileSize < MinTileSize || settings.TileSize > MaxTileSize {
		validationError = multierr.Append(validationError, fmt.Errorf("tile size must be between %d and %d, got %d", MinTileSize, MaxTileSize, settings.TileSize))
	}
	if settings.FPS < MinFPS || settings.FPS > MaxFPS {
		validationError = multierr.Append(validationError, fmt.Errorf("fps must be between %d and %d, got %d", MinFPS, MaxFPS, settings.FPS))
	}
	if settings.Quality < MinQuality || settings.Quality > MaxQuality {
		validationError = multierr.Append(validationError, fmt.Errorf("quality (CRF) must be between %d and %d, got %d", MinQuality, MaxQuality, settings.Quality))
	}
	if !isKnownFormat(settings.Format) {
		validationError = multierr.Append(validationError, fmt.Errorf("unsupported image format %q", settings.Format))
	}
	if settings.FrameTimeout < 0 {
		validationError = multierr.Append(validationError, fmt.Errorf("frame timeout must not be negative, got %s", settings.FrameTimeout))
	}
	return validationError
}

// Scale is the upscale factor implied by the selected model.
func (settings Settings) Scale() int {
	return ScaleFromModel(settings.Model)
}

func isKnownFormat(format string) bool {
	for _, candidate := range Formats {
		if candidate == format {
			return true
		}
	}
	return false
}
