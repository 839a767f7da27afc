package mediautil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Dimensions holds pixel dimensions of a decoded frame.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ProbeDimensions decodes just enough of the buffer to report its pixel
// dimensions. Video containers are not probed here.
func ProbeDimensions(data []byte) (Dimensions, error) {
	format, err := DetectFormat(data)
	if err != nil {
		return Dimensions{}, err
	}
	if format.IsVideo() {
		return Dimensions{}, fmt.Errorf("dimension probe does not support %s", format)
	}

	if format == FormatWebP {
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return Dimensions{}, fmt.Errorf("decode webp header: %w", err)
		}
		b := img.Bounds()
		return Dimensions{Width: b.Dx(), Height: b.Dy()}, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Dimensions{}, fmt.Errorf("decode image header: %w", err)
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}
