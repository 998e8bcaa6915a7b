// Package tools finds the external executables and model files the upscaler
// depends on.
package tools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

var (
	ErrRealESRGANNotFound = errors.New("Real-ESRGAN executable not found, please install Real-ESRGAN")
	ErrFFmpegNotFound     = errors.New("FFmpeg not found, please install FFmpeg and add it to PATH")
	ErrFFprobeNotFound    = errors.New("ffprobe not found next to FFmpeg or in PATH")
	ErrModelsDirNotFound  = errors.New("Real-ESRGAN models directory not found")
	ErrNoModels           = errors.New("no Real-ESRGAN models found (need matching .param and .bin files)")
)

var realESRGANNames = []string{"realesrgan-ncnn-vulkan", "realsr-esrgan"}

const (
	ffmpegName         = "ffmpeg"
	ffprobeName        = "ffprobe"
	binDirectoryName   = "bin"
	modelsDirName      = "models"
	modelParamSuffix   = ".param"
	modelWeightsSuffix = ".bin"
)

// Locator searches a base directory, its bin/ subdirectory and finally PATH.
type Locator struct {
	baseDir  string
	goos     string
	lookPath func(file string) (string, error)
}

// NewLocator creates a locator rooted at baseDir (usually the working directory).
func NewLocator(baseDir string) *Locator {
	return &Locator{baseDir: baseDir, goos: runtime.GOOS, lookPath: exec.LookPath}
}

// WithLookPath replaces the PATH lookup.
func (locator *Locator) WithLookPath(lookPath func(file string) (string, error)) *Locator {
	locator.lookPath = lookPath
	return locator
}

// WithGOOS overrides the platform used to pick executable names.
func (locator *Locator) WithGOOS(goos string) *Locator {
	locator.goos = goos
	return locator
}

func (locator *Locator) executableName(name string) string {
	if locator.goos == "windows" {
		return name + ".exe"
	}
	return name
}

// FindRealESRGAN returns the first Real-ESRGAN executable found.
func (locator *Locator) FindRealESRGAN() (string, error) {
	directories := []string{
		locator.baseDir,
		filepath.Join(locator.baseDir, binDirectoryName),
	}
	if executablePath, err := os.Executable(); err == nil {
		executableDir := filepath.Dir(executablePath)
		directories = append(directories, executableDir, filepath.Join(executableDir, binDirectoryName))
	}

	for _, name := range realESRGANNames {
		for _, directory := range directories {
			candidate := filepath.Join(directory, locator.executableName(name))
			if isExecutableFile(candidate, locator.goos) {
				return absolute(candidate), nil
			}
		}
	}
	for _, name := range realESRGANNames {
		if found, err := locator.lookPath(locator.executableName(name)); err == nil {
			return found, nil
		}
	}
	return "", ErrRealESRGANNotFound
}

// FindFFmpeg returns bin/ffmpeg when bundled, otherwise ffmpeg from PATH.
func (locator *Locator) FindFFmpeg() (string, error) {
	candidate := filepath.Join(locator.baseDir, binDirectoryName, locator.executableName(ffmpegName))
	if isExecutableFile(candidate, locator.goos) {
		return absolute(candidate), nil
	}
	if found, err := locator.lookPath(locator.executableName(ffmpegName)); err == nil {
		return found, nil
	}
	return "", ErrFFmpegNotFound
}

// FindFFprobe prefers the ffprobe shipped next to ffmpegPath.
func (locator *Locator) FindFFprobe(ffmpegPath string) (string, error) {
	if len(ffmpegPath) > 0 {
		candidate := filepath.Join(filepath.Dir(ffmpegPath), locator.executableName(ffprobeName))
		if isExecutableFile(candidate, locator.goos) {
			return candidate, nil
		}
	}
	if found, err := locator.lookPath(locator.executableName(ffprobeName)); err == nil {
		return found, nil
	}
	return "", ErrFFprobeNotFound
}

// FindModelsDir looks for a models/ directory near the Real-ESRGAN executable
// and then under the base directory.
func (locator *Locator) FindModelsDir(realESRGANPath string) (string, error) {
	var candidates []string
	if len(realESRGANPath) > 0 {
		executableDir := filepath.Dir(realESRGANPath)
		candidates = append(candidates,
			filepath.Join(executableDir, modelsDirName),
			filepath.Join(executableDir, "..", modelsDirName),
		)
	}
	candidates = append(candidates,
		filepath.Join(locator.baseDir, modelsDirName),
		filepath.Join(locator.baseDir, binDirectoryName, modelsDirName),
	)

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return absolute(candidate), nil
		}
	}
	return "", ErrModelsDirNotFound
}

// AvailableModels lists, sorted, every model in dir that has both its
// .param and .bin file.
func AvailableModels(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			present[entry.Name()] = true
		}
	}

	var models []string
	for name := range present {
		if !strings.HasSuffix(name, modelParamSuffix) {
			continue
		}
		model := strings.TrimSuffix(name, modelParamSuffix)
		if present[model+modelWeightsSuffix] {
			models = append(models, model)
		}
	}
	sort.Strings(models)
	return models, nil
}

// Dependencies is the resolved set of external collaborators.
type Dependencies struct {
	RealESRGAN string
	FFmpeg     string
	// FFprobe is optional; without it source frame rates cannot be probed.
	FFprobe   string
	ModelsDir string
	Models    []string
}

// CheckDependencies resolves everything and reports every missing required
// dependency at once. The returned Dependencies is populated as far as
// possible even when an error is returned.
func (locator *Locator) CheckDependencies() (Dependencies, error) {
	var dependencies Dependencies
	var missing error

	realESRGAN, err := locator.FindRealESRGAN()
	if err != nil {
		missing = multierr.Append(missing, err)
	}
	dependencies.RealESRGAN = realESRGAN

	ffmpegPath, err := locator.FindFFmpeg()
	if err != nil {
		missing = multierr.Append(missing, err)
	}
	dependencies.FFmpeg = ffmpegPath

	if ffprobePath, probeErr := locator.FindFFprobe(ffmpegPath); probeErr == nil {
		dependencies.FFprobe = ffprobePath
	}

	modelsDir, err := locator.FindModelsDir(realESRGAN)
	if err != nil {
		return dependencies, multierr.Append(missing, err)
	}
	dependencies.ModelsDir = modelsDir

	models, err := AvailableModels(modelsDir)
	if err != nil {
		return dependencies, multierr.Append(missing, err)
	}
	if len(models) == 0 {
		missing = multierr.Append(missing, ErrNoModels)
	}
	dependencies.Models = models

	return dependencies, missing
}

func isExecutableFile(path, goos string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if goos == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

func absolute(path string) string {
	if resolved, err := filepath.Abs(path); err == nil {
		return resolved
	}
	return path
}
