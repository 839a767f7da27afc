package codec

import (
	"context"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
)

// Op is the kind of work requested from an execution unit.
type Op string

const (
	OpDecode  Op = "decode"
	OpEncode  Op = "encode"
	OpConvert Op = "convert"
)

// Options carries the per-format encode knobs.
type Options struct {
	Quality  int  `json:"quality,omitempty"`  // 1-100, 0 means format default
	Lossless bool `json:"lossless,omitempty"` // webp only
	// PNG compression level and GIF palette size ride along for their formats.
	PNGCompression int `json:"png_compression,omitempty"`
	GIFColors      int `json:"gif_colors,omitempty"`
}

// ProgressFunc receives best-effort progress from an engine: a stage label
// and a 0-100 percentage.
type ProgressFunc func(stage string, percent int)

// Request is one decode/encode/convert exchange with an engine.
type Request struct {
	Op           Op
	Payload      []byte
	SourceFormat mediautil.Format
	TargetFormat mediautil.Format
	Options      Options
	OnProgress   ProgressFunc
}

// Response is the engine's answer. Exactly one Response is produced per
// Request.
type Response struct {
	Payload    []byte
	Dimensions *mediautil.Dimensions
}

// Engine is a codec treated as a black box by the orchestration layer.
// Implementations must be safe for a single goroutine calling Process
// sequentially; each execution unit owns its own Engine instance.
type Engine interface {
	Name() string
	Process(ctx context.Context, req *Request) (*Response, error)
}

// EngineFactory builds one Engine per execution unit.
type EngineFactory func() (Engine, error)
