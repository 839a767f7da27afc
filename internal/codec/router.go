package codec

import (
	"context"
	"fmt"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
)

// RouterEngine picks the right codec for each request by source format. Image
// and GIF codecs are always available; the video codec is optional and video
// tasks fail with the construction error when ffmpeg is absent.
type RouterEngine struct {
	image Engine
	gif   Engine
	video Engine
	// videoErr remembers why the video codec is unavailable.
	videoErr error
}

// NewRouterEngine builds the per-unit engine set.
func NewRouterEngine(ffmpegBinary string) (Engine, error) {
	image, err := NewImageEngine()
	if err != nil {
		return nil, err
	}
	gifEngine, err := NewGIFEngine()
	if err != nil {
		return nil, err
	}

	r := &RouterEngine{image: image, gif: gifEngine}
	if video, err := NewVideoEngine(ffmpegBinary); err != nil {
		r.videoErr = err
	} else {
		r.video = video
	}
	return r, nil
}

func (r *RouterEngine) Name() string { return "router" }

func (r *RouterEngine) Process(ctx context.Context, req *Request) (*Response, error) {
	switch {
	case req.SourceFormat.IsVideo() || req.TargetFormat.IsVideo():
		if r.video == nil {
			return nil, fmt.Errorf("video codec unavailable: %w", r.videoErr)
		}
		return r.video.Process(ctx, req)
	case req.SourceFormat == mediautil.FormatGIF:
		return r.gif.Process(ctx, req)
	default:
		return r.image.Process(ctx, req)
	}
}
