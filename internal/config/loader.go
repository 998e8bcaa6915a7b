package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	applicationDirectoryName = "ssupscaler"
	configurationName        = "config"
	configurationType        = "yaml"
	// EnvironmentPrefix namespaces environment overrides, e.g.
	// SSUPSCALER_SETTINGS_TILE_SIZE=200.
	EnvironmentPrefix = "SSUPSCALER"
	dotEnvFileName    = ".env"

	settingsKey     = "settings"
	logLevelKey     = "log_level"
	logFormatKey    = "log_format"
	DefaultLogLevel = "info"
	// DefaultLogFormat keeps diagnostics readable next to the progress display.
	DefaultLogFormat = "console"
)

// Configuration is the persisted document: logging options plus the
// settings used for every upscaling job.
type Configuration struct {
	LogLevel  string   `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string   `mapstructure:"log_format" yaml:"log_format"`
	Settings  Settings `mapstructure:"settings" yaml:"settings"`
}

// DefaultConfiguration returns the configuration used on first start.
func DefaultConfiguration() Configuration {
	return Configuration{
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
		Settings:  Defaults(),
	}
}

// LoadedConfiguration surfaces metadata about the resolved configuration.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// Loader wraps viper to read the settings file and environment overrides.
type Loader struct {
	searchPaths            []string
	environmentPrefix      string
	environmentKeyReplacer *strings.Replacer
	dotEnvPath             string
}

// NewLoader creates a loader searching the given directories in order.
func NewLoader(searchPaths ...string) *Loader {
	return &Loader{
		searchPaths:            append([]string(nil), searchPaths...),
		environmentPrefix:      EnvironmentPrefix,
		environmentKeyReplacer: strings.NewReplacer(".", "_"),
		dotEnvPath:             dotEnvFileName,
	}
}

// NewDefaultLoader searches the user configuration directory and then the
// working directory.
func NewDefaultLoader() *Loader {
	searchPaths := []string{}
	if directory, err := Directory(); err == nil {
		searchPaths = append(searchPaths, directory)
	}
	return NewLoader(append(searchPaths, ".")...)
}

// WithDotEnv overrides the .env file consulted before reading the environment.
// An empty path disables .env loading.
func (loader *Loader) WithDotEnv(path string) *Loader {
	loader.dotEnvPath = path
	return loader
}

// DefaultValues flattens DefaultConfiguration into viper keys.
func DefaultValues() map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		logLevelKey:                    defaults.LogLevel,
		logFormatKey:                   defaults.LogFormat,
		settingsKey + ".model":         defaults.Settings.Model,
		settingsKey + ".use_gpu":       defaults.Settings.UseGPU,
		settingsKey + ".gpu_device":    defaults.Settings.GPUDevice,
		settingsKey + ".tile_size":     defaults.Settings.TileSize,
		settingsKey + ".fps":           defaults.Settings.FPS,
		settingsKey + ".quality":       defaults.Settings.Quality,
		settingsKey + ".format":        defaults.Settings.Format,
		settingsKey + ".output_dir":    defaults.Settings.OutputDir,
		settingsKey + ".frame_timeout": defaults.Settings.FrameTimeout.String(),
	}
}

// Load resolves the configuration from defaults, the settings file (an
// explicit path wins over the search paths), .env and the environment.
// A missing settings file is not an error.
func (loader *Loader) Load(configurationFilePath string) (Configuration, LoadedConfiguration, error) {
	if len(loader.dotEnvPath) > 0 {
		if dotEnvError := godotenv.Load(loader.dotEnvPath); dotEnvError != nil && !errors.Is(dotEnvError, fs.ErrNotExist) {
			return Configuration{}, LoadedConfiguration{}, fmt.Errorf("failed to load %s: %w", loader.dotEnvPath, dotEnvError)
		}
	}

	viperInstance := viper.New()
	viperInstance.SetConfigName(configurationName)
	viperInstance.SetConfigType(configurationType)
	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}

	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(loader.environmentKeyReplacer)
	viperInstance.AutomaticEnv()

	for defaultKey, defaultValue := range DefaultValues() {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}

	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
	}

	if readError := viperInstance.MergeInConfig(); readError != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(readError, &notFound) && !errors.Is(readError, fs.ErrNotExist) {
			return Configuration{}, LoadedConfiguration{}, fmt.Errorf("failed to read configuration: %w", readError)
		}
	}

	var configuration Configuration
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if unmarshalError := viperInstance.Unmarshal(&configuration, decodeHook); unmarshalError != nil {
		return Configuration{}, LoadedConfiguration{}, fmt.Errorf("failed to parse configuration: %w", unmarshalError)
	}

	return configuration, LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

// Directory returns the per-user directory holding the settings file.
func Directory() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, applicationDirectoryName), nil
}

// DefaultPath returns the settings file written by Save when no explicit
// path is configured.
func DefaultPath() (string, error) {
	directory, err := Directory()
	if err != nil {
		return "", err
	}
	return filepath.Join(directory, configurationName+"."+configurationType), nil
}
