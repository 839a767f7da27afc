package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

const defaultJPEGQuality = 85

// ImageEngine converts still images between raster formats.
type ImageEngine struct{}

// NewImageEngine creates an image codec engine.
func NewImageEngine() (Engine, error) {
	return &ImageEngine{}, nil
}

func (e *ImageEngine) Name() string { return "image" }

func (e *ImageEngine) Process(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report(req.OnProgress, "decoding", 10)
	img, err := e.decode(req.Payload, req.SourceFormat)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.SourceFormat, err)
	}
	bounds := img.Bounds()
	dims := &mediautil.Dimensions{Width: bounds.Dx(), Height: bounds.Dy()}

	if req.Op == OpDecode {
		report(req.OnProgress, "done", 100)
		return &Response{Payload: req.Payload, Dimensions: dims}, nil
	}

	report(req.OnProgress, "encoding", 60)
	out, err := e.encode(img, req.TargetFormat, req.Options)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.TargetFormat, err)
	}

	report(req.OnProgress, "done", 100)
	return &Response{Payload: out, Dimensions: dims}, nil
}

func (e *ImageEngine) decode(data []byte, format mediautil.Format) (image.Image, error) {
	r := bytes.NewReader(data)
	switch format {
	case mediautil.FormatJPEG:
		return jpeg.Decode(r)
	case mediautil.FormatPNG:
		return png.Decode(r)
	case mediautil.FormatGIF:
		return gif.Decode(r)
	case mediautil.FormatWebP:
		return webp.Decode(r)
	default:
		// BMP, TIFF and anything else imaging understands.
		return imaging.Decode(r)
	}
}

func (e *ImageEngine) encode(img image.Image, target mediautil.Format, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	switch target {
	case mediautil.FormatJPEG:
		quality := opts.Quality
		if quality <= 0 {
			quality = defaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	case mediautil.FormatPNG:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if opts.PNGCompression > 0 {
			enc.CompressionLevel = png.BestCompression
		}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case mediautil.FormatGIF:
		colors := opts.GIFColors
		if colors <= 0 || colors > 256 {
			colors = 256
		}
		if err := gif.Encode(&buf, img, &gif.Options{NumColors: colors}); err != nil {
			return nil, err
		}
	case mediautil.FormatWebP:
		wopts := &webp.Options{Lossless: opts.Lossless}
		if !opts.Lossless {
			quality := opts.Quality
			if quality <= 0 {
				quality = defaultJPEGQuality
			}
			wopts.Quality = float32(quality)
		}
		if err := webp.Encode(&buf, img, wopts); err != nil {
			return nil, err
		}
	case mediautil.FormatBMP:
		if err := imaging.Encode(&buf, img, imaging.BMP); err != nil {
			return nil, err
		}
	case mediautil.FormatTIFF:
		if err := imaging.Encode(&buf, img, imaging.TIFF); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported target format: %s", target)
	}

	return buf.Bytes(), nil
}

func report(fn ProgressFunc, stage string, percent int) {
	if fn != nil {
		fn(stage, percent)
	}
}
