package config

import "strings"

// Known Real-ESRGAN model names.
const (
	ModelAnimeVideoX2  = "realesr-animevideov3-x2"
	ModelAnimeVideoX3  = "realesr-animevideov3-x3"
	ModelAnimeVideoX4  = "realesr-animevideov3-x4"
	ModelGeneralX4     = "realesrgan-x4plus"
	ModelAnimePhotosX4 = "realesrgan-x4plus-anime"
)

// Models lists the known models in presentation order.
var Models = []string{
	ModelAnimeVideoX2,
	ModelAnimeVideoX3,
	ModelAnimeVideoX4,
	ModelGeneralX4,
	ModelAnimePhotosX4,
}

var quickLabels = map[string]string{
	ModelAnimeVideoX2:  "Anime Image/Video 2x",
	ModelAnimeVideoX3:  "Anime Image/Video 3x",
	ModelAnimeVideoX4:  "Anime Image/Video 4x",
	ModelGeneralX4:     "General Image/Video 4x",
	ModelAnimePhotosX4: "Anime Photos 4x",
}

// QuickLabels returns the quick-selection labels in the same order as Models.
func QuickLabels() []string {
	labels := make([]string, 0, len(Models))
	for _, model := range Models {
		labels = append(labels, quickLabels[model])
	}
	return labels
}

// QuickLabel returns the quick-selection label for a model, falling back to
// the label of the default model for unknown names.
func QuickLabel(model string) string {
	if label, found := quickLabels[model]; found {
		return label
	}
	return quickLabels[DefaultModel]
}

// ModelForLabel resolves a quick-selection label back to its model name.
func ModelForLabel(label string) (string, bool) {
	for model, candidate := range quickLabels {
		if candidate == label {
			return model, true
		}
	}
	return "", false
}

// IsKnownModel reports whether model is one of Models.
func IsKnownModel(model string) bool {
	_, found := quickLabels[model]
	return found
}

// ScaleFromModel derives the upscale factor from the model name. Names
// without an x2 or x3 marker are treated as 4x models.
func ScaleFromModel(model string) int {
	switch {
	case strings.Contains(model, "x2"):
		return 2
	case strings.Contains(model, "x3"):
		return 3
	default:
		return 4
	}
}

// ScaleLabel renders the scale as used in output file names, e.g. "x2".
func ScaleLabel(model string) string {
	switch ScaleFromModel(model) {
	case 2:
		return "x2"
	case 3:
		return "x3"
	default:
		return "x4"
	}
}
