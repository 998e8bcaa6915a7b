package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"ssupscaler/internal/config"
)

func TestSettingsValidate(testInstance *testing.T) {
	testCases := []struct {
		name           string
		mutate         func(*config.Settings)
		expectedErrors int
	}{
		{name: "defaults", mutate: func(*config.Settings) {}},
		{name: "auto_tile_and_source_fps", mutate: func(settings *config.Settings) {
			settings.TileSize = 0
			settings.FPS = 0
		}},
		{name: "tile_too_large", mutate: func(settings *config.Settings) { settings.TileSize = 4096 }, expectedErrors: 1},
		{name: "crf_out_of_range", mutate: func(settings *config.Settings) { settings.Quality = 52 }, expectedErrors: 1},
		{name: "unknown_model_and_format", mutate: func(settings *config.Settings) {
			settings.Model = "waifu2x"
			settings.Format = "gif"
		}, expectedErrors: 2},
		{name: "everything_wrong", mutate: func(settings *config.Settings) {
			settings.Model = ""
			settings.GPUDevice = -1
			settings.TileSize = -1
			settings.FPS = 121
			settings.Quality = -1
			settings.Format = ""
			settings.FrameTimeout = -time.Second
		}, expectedErrors: 7},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			settings := config.Defaults()
			testCase.mutate(&settings)
			validationError := settings.Validate()
			if testCase.expectedErrors == 0 {
				require.NoError(testInstance, validationError)
				return
			}
			require.Len(testInstance, multierr.Errors(validationError), testCase.expectedErrors)
		})
	}
}

func TestModelCatalog(testInstance *testing.T) {
	testCases := []struct {
		model         string
		expectedLabel string
		expectedScale int
		expectedName  string
	}{
		{model: config.ModelAnimeVideoX2, expectedLabel: "Anime Image/Video 2x", expectedScale: 2, expectedName: "x2"},
		{model: config.ModelAnimeVideoX3, expectedLabel: "Anime Image/Video 3x", expectedScale: 3, expectedName: "x3"},
		{model: config.ModelAnimeVideoX4, expectedLabel: "Anime Image/Video 4x", expectedScale: 4, expectedName: "x4"},
		{model: config.ModelGeneralX4, expectedLabel: "General Image/Video 4x", expectedScale: 4, expectedName: "x4"},
		{model: config.ModelAnimePhotosX4, expectedLabel: "Anime Photos 4x", expectedScale: 4, expectedName: "x4"},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.model, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedLabel, config.QuickLabel(testCase.model))
			require.Equal(testInstance, testCase.expectedScale, config.ScaleFromModel(testCase.model))
			require.Equal(testInstance, testCase.expectedName, config.ScaleLabel(testCase.model))

			model, found := config.ModelForLabel(testCase.expectedLabel)
			require.True(testInstance, found)
			require.Equal(testInstance, testCase.model, model)
		})
	}

	require.Equal(testInstance, "Anime Image/Video 2x", config.QuickLabel("unknown"))
	require.Equal(testInstance, "x4", config.ScaleLabel("custom-model"))
	require.Len(testInstance, config.QuickLabels(), len(config.Models))
}

func TestLoaderPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name           string
		fileContent    string
		environment    map[string]string
		expectedTile   int
		expectedModel  string
		expectedTimout time.Duration
		expectedGPU    bool
	}{
		{
			name:           "defaults_without_file",
			expectedTile:   config.DefaultTileSize,
			expectedModel:  config.DefaultModel,
			expectedTimout: config.DefaultFrameTimeout,
			expectedGPU:    true,
		},
		{
			name:           "file_overrides_defaults",
			fileContent:    "settings:\n  tile_size: 256\n  model: realesrgan-x4plus\n  frame_timeout: 90s\n  use_gpu: false\n",
			expectedTile:   256,
			expectedModel:  config.ModelGeneralX4,
			expectedTimout: 90 * time.Second,
			expectedGPU:    false,
		},
		{
			name:           "environment_overrides_file",
			fileContent:    "settings:\n  tile_size: 256\n",
			environment:    map[string]string{"SSUPSCALER_SETTINGS_TILE_SIZE": "128", "SSUPSCALER_SETTINGS_FRAME_TIMEOUT": "2m"},
			expectedTile:   128,
			expectedModel:  config.DefaultModel,
			expectedTimout: 2 * time.Minute,
			expectedGPU:    true,
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			directory := testInstance.TempDir()
			for key, value := range testCase.environment {
				testInstance.Setenv(key, value)
			}
			if len(testCase.fileContent) > 0 {
				require.NoError(testInstance, os.WriteFile(filepath.Join(directory, "config.yaml"), []byte(testCase.fileContent), 0o644))
			}

			loader := config.NewLoader(directory).WithDotEnv("")
			configuration, metadata, loadError := loader.Load("")
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedTile, configuration.Settings.TileSize)
			require.Equal(testInstance, testCase.expectedModel, configuration.Settings.Model)
			require.Equal(testInstance, testCase.expectedTimout, configuration.Settings.FrameTimeout)
			require.Equal(testInstance, testCase.expectedGPU, configuration.Settings.UseGPU)
			require.Equal(testInstance, config.DefaultLogLevel, configuration.LogLevel)
			if len(testCase.fileContent) > 0 {
				require.Equal(testInstance, filepath.Join(directory, "config.yaml"), metadata.ConfigFileUsed)
			}
		})
	}
}

func TestLoaderReadsDotEnv(testInstance *testing.T) {
	directory := testInstance.TempDir()
	dotEnvPath := filepath.Join(directory, ".env")
	require.NoError(testInstance, os.WriteFile(dotEnvPath, []byte("SSUPSCALER_SETTINGS_QUALITY=23\n"), 0o644))
	testInstance.Cleanup(func() { os.Unsetenv("SSUPSCALER_SETTINGS_QUALITY") })

	configuration, _, loadError := config.NewLoader(directory).WithDotEnv(dotEnvPath).Load("")
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, 23, configuration.Settings.Quality)
}

func TestSaveRoundTrip(testInstance *testing.T) {
	path := filepath.Join(testInstance.TempDir(), "nested", "config.yaml")
	saved := config.DefaultConfiguration()
	saved.Settings.Model = config.ModelAnimeVideoX4
	saved.Settings.OutputDir = "/srv/upscaled"
	saved.Settings.FrameTimeout = 45 * time.Second

	require.NoError(testInstance, config.Save(path, saved))

	loaded, _, loadError := config.NewLoader().WithDotEnv("").Load(path)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, saved, loaded)
}
