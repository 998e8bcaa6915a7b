package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ssupscaler/internal/config"
)

// ErrOutputNotDirectory is returned when the output path exists as a file.
var ErrOutputNotDirectory = errors.New("output path is not a directory")

// OutputPath derives "<stem>_upscaled_<xN><ext>" inside outputDir. Videos keep
// their container extension; images take the configured output format.
func OutputPath(inputPath, outputDir string, settings config.Settings) string {
	base := filepath.Base(inputPath)
	extension := filepath.Ext(base)
	stem := strings.TrimSuffix(base, extension)

	outputExtension := extension
	if !IsVideo(inputPath) {
		outputExtension = "." + settings.Format
	}
	name := fmt.Sprintf("%s_upscaled_%s%s", stem, config.ScaleLabel(settings.Model), outputExtension)
	return filepath.Join(outputDir, name)
}

// ValidateOutputDir makes sure dir exists (creating it if needed), is a
// directory and accepts new files.
func ValidateOutputDir(dir string) error {
	cleaned := strings.TrimSpace(dir)
	if cleaned == "" {
		return errors.New("output directory cannot be empty")
	}
	cleaned = filepath.Clean(cleaned)

	if info, err := os.Stat(cleaned); err == nil {
		if !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrOutputNotDirectory, cleaned)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if mkdirErr := os.MkdirAll(cleaned, 0o755); mkdirErr != nil {
			return fmt.Errorf("cannot create output directory: %w", mkdirErr)
		}
	} else {
		return fmt.Errorf("cannot access output directory: %w", err)
	}

	probe, err := os.CreateTemp(cleaned, ".ssupscaler_write_test_*")
	if err != nil {
		return fmt.Errorf("no write permission in output directory: %w", err)
	}
	probeName := probe.Name()
	probe.Close()
	os.Remove(probeName)
	return nil
}
