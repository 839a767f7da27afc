package codec

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	"github.com/disintegration/imaging"
)

// GIFEngine works on animated GIFs frame by frame. Resize keeps every frame
// and its delay; conversion to a still format takes the first frame.
type GIFEngine struct{}

// NewGIFEngine creates a GIF frame codec engine.
func NewGIFEngine() (Engine, error) {
	return &GIFEngine{}, nil
}

func (e *GIFEngine) Name() string { return "gif" }

func (e *GIFEngine) Process(ctx context.Context, req *Request) (*Response, error) {
	if req.SourceFormat != mediautil.FormatGIF {
		return nil, fmt.Errorf("gif engine cannot read %s", req.SourceFormat)
	}

	anim, err := gif.DecodeAll(bytes.NewReader(req.Payload))
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}
	if len(anim.Image) == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}

	dims := &mediautil.Dimensions{
		Width:  anim.Config.Width,
		Height: anim.Config.Height,
	}

	// Converting away from GIF hands the first frame to the still-image path.
	if req.TargetFormat != mediautil.FormatGIF && req.TargetFormat != mediautil.FormatUnknown {
		still := &ImageEngine{}
		out, err := still.encode(flattenFrame(anim, 0), req.TargetFormat, req.Options)
		if err != nil {
			return nil, err
		}
		report(req.OnProgress, "done", 100)
		return &Response{Payload: out, Dimensions: dims}, nil
	}

	total := len(anim.Image)
	for i := range anim.Image {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		anim.Image[i] = quantizeFrame(flattenFrame(anim, i))
		report(req.OnProgress, "reencoding frames", (i+1)*90/total)
	}
	anim.Config.ColorModel = nil
	anim.BackgroundIndex = 0

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}

	report(req.OnProgress, "done", 100)
	return &Response{Payload: buf.Bytes(), Dimensions: dims}, nil
}

// flattenFrame composes frame i onto the logical canvas so partial-canvas
// frames keep their placement.
func flattenFrame(anim *gif.GIF, i int) image.Image {
	canvas := image.NewNRGBA(image.Rect(0, 0, anim.Config.Width, anim.Config.Height))
	draw.Draw(canvas, anim.Image[i].Bounds(), anim.Image[i], anim.Image[i].Bounds().Min, draw.Over)
	return canvas
}

func quantizeFrame(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	frame := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(frame, bounds, img, bounds.Min)
	return frame
}

// ResizeAllFrames scales every frame of a GIF payload to the given size.
func ResizeAllFrames(data []byte, width, height int) ([]byte, error) {
	anim, err := gif.DecodeAll(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode gif: %w", err)
	}

	for i := range anim.Image {
		resized := imaging.Resize(flattenFrame(anim, i), width, height, imaging.Lanczos)
		anim.Image[i] = quantizeFrame(resized)
	}
	anim.Config.Width = width
	anim.Config.Height = height
	anim.Config.ColorModel = nil

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, anim); err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}
