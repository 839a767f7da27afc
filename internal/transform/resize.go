package transform

import (
	"bytes"
	"fmt"
	"image"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/disintegration/imaging"
)

// Preset names a common resize target.
type Preset string

const (
	PresetOriginal Preset = "original"
	PresetCustom   Preset = "custom"
	PresetHD       Preset = "hd"   // 1280x720 bounding box
	PresetFullHD   Preset = "fhd"  // 1920x1080 bounding box
	PresetThumb    Preset = "thumb" // 256x256 bounding box
)

// Config is a pre-conversion geometric resize attached to a batch item.
type Config struct {
	Preset              Preset `json:"preset"`
	Width               int    `json:"width"`
	Height              int    `json:"height"`
	MaintainAspectRatio bool   `json:"maintain_aspect_ratio"`
	DPI                 int    `json:"dpi"`
}

// TargetSize resolves the configured preset to concrete pixel dimensions.
func (c Config) TargetSize() (int, int) {
	switch c.Preset {
	case PresetHD:
		return 1280, 720
	case PresetFullHD:
		return 1920, 1080
	case PresetThumb:
		return 256, 256
	default:
		return c.Width, c.Height
	}
}

// Applies reports whether the config asks for a size different from the
// source dimensions.
func (c Config) Applies(src *mediautil.Dimensions) bool {
	if c.Preset == PresetOriginal {
		return false
	}
	w, h := c.TargetSize()
	if w <= 0 && h <= 0 {
		return false
	}
	if src == nil {
		return true
	}
	return w != src.Width || h != src.Height
}

// Resize resamples the file to the configured size, returning a new file in
// the same format. Animated GIFs are resized frame by frame. The step emits
// its own synthetic progress milestones, distinct from codec progress.
func Resize(file *mediautil.File, cfg Config, onProgress codec.ProgressFunc) (*mediautil.File, error) {
	report(onProgress, "resizing", 10)

	format, err := mediautil.DetectFormat(file.Data)
	if err != nil {
		return nil, fmt.Errorf("resize source: %w", err)
	}

	width, height := cfg.TargetSize()

	if format == mediautil.FormatGIF {
		out, err := codec.ResizeAllFrames(file.Data, width, height)
		if err != nil {
			return nil, err
		}
		report(onProgress, "resizing", 20)
		return &mediautil.File{Name: file.Name, Data: out}, nil
	}

	src, err := imaging.Decode(bytes.NewReader(file.Data))
	if err != nil {
		return nil, fmt.Errorf("decode for resize: %w", err)
	}
	report(onProgress, "resizing", 15)

	var resized *image.NRGBA
	if cfg.MaintainAspectRatio {
		resized = imaging.Fit(src, width, height, imaging.Lanczos)
	} else {
		resized = imaging.Resize(src, width, height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	encFormat, err := imagingFormat(format)
	if err != nil {
		return nil, err
	}
	if err := imaging.Encode(&buf, resized, encFormat); err != nil {
		return nil, fmt.Errorf("encode resized image: %w", err)
	}

	report(onProgress, "resizing", 20)
	return &mediautil.File{Name: file.Name, Data: buf.Bytes()}, nil
}

func imagingFormat(f mediautil.Format) (imaging.Format, error) {
	switch f {
	case mediautil.FormatJPEG:
		return imaging.JPEG, nil
	case mediautil.FormatPNG:
		return imaging.PNG, nil
	case mediautil.FormatBMP:
		return imaging.BMP, nil
	case mediautil.FormatTIFF:
		return imaging.TIFF, nil
	case mediautil.FormatWebP:
		// imaging cannot write webp; resized webp sources round-trip as png
		// and the codec engine re-encodes to the target format afterwards.
		return imaging.PNG, nil
	default:
		return imaging.PNG, fmt.Errorf("resize does not support %s", f)
	}
}

func report(fn codec.ProgressFunc, stage string, percent int) {
	if fn != nil {
		fn(stage, percent)
	}
}
