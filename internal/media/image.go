package media

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Dimensions is a pixel size.
type Dimensions struct {
	Width  int
	Height int
}

func (dimensions Dimensions) String() string {
	return fmt.Sprintf("%dx%d", dimensions.Width, dimensions.Height)
}

// ImageDimensions decodes only the header of the image at path.
func ImageDimensions(path string) (Dimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer file.Close()

	header, _, err := image.DecodeConfig(file)
	if err != nil {
		return Dimensions{}, fmt.Errorf("failed to read image header: %w", err)
	}
	return Dimensions{Width: header.Width, Height: header.Height}, nil
}

// ResizeFallback writes a Lanczos-resized copy of inputPath scaled by scale.
// It keeps a video's frame sequence complete when Real-ESRGAN rejects a frame.
func ResizeFallback(inputPath, outputPath string, scale int) error {
	source, err := imaging.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open frame: %w", err)
	}
	bounds := source.Bounds()
	resized := imaging.Resize(source, bounds.Dx()*scale, bounds.Dy()*scale, imaging.Lanczos)
	if err := imaging.Save(resized, outputPath); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
