// Package media classifies input files, maintains the processing queue and
// derives output locations.
package media

import (
	"path/filepath"
	"strings"
)

// Kind is the processing path a file takes.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindVideo
)

func (kind Kind) String() string {
	switch kind {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

var (
	// ImageExtensions are upscaled directly by Real-ESRGAN.
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".webp"}
	// VideoExtensions go through frame extraction and reassembly.
	VideoExtensions = []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv"}
)

// Classify determines the kind of path by its lowercase extension.
func Classify(path string) Kind {
	extension := strings.ToLower(filepath.Ext(path))
	for _, candidate := range ImageExtensions {
		if extension == candidate {
			return KindImage
		}
	}
	for _, candidate := range VideoExtensions {
		if extension == candidate {
			return KindVideo
		}
	}
	return KindUnsupported
}

func IsImage(path string) bool { return Classify(path) == KindImage }

func IsVideo(path string) bool { return Classify(path) == KindVideo }

func IsSupported(path string) bool { return Classify(path) != KindUnsupported }
