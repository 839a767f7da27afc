package convert

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/MediaForgeNet/mediaforge-core/internal/codec"
	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
	workerpool "github.com/MediaForgeNet/mediaforge-core/internal/worker"
	"go.uber.org/zap"
)

// Result is the immutable outcome of one successful conversion.
type Result struct {
	Buffer             []byte
	TargetFormat       mediautil.Format
	MIMEType           string
	Filename           string
	Dimensions         *mediautil.Dimensions
	OriginalSizeBytes  int64
	ConvertedSizeBytes int64
}

// Service turns a file plus a target format into a pool task and unwraps the
// response. It recovers from nothing: every failure is returned to the
// caller.
type Service struct {
	pool   *workerpool.Pool
	logger *zap.Logger
}

// NewService wires a conversion service onto an initialized pool.
func NewService(pool *workerpool.Pool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{pool: pool, logger: logger}
}

// Convert sniffs the file's source format, runs the conversion on the pool
// and builds the result. Progress is forwarded verbatim from the execution
// unit; the service synthesizes none of its own.
func (s *Service) Convert(ctx context.Context, file *mediautil.File, target mediautil.Format, opts codec.Options, onProgress codec.ProgressFunc) (*Result, error) {
	source, err := mediautil.DetectFormat(file.Data)
	if err != nil {
		return nil, &FormatDetectionError{Filename: file.Name, Cause: err}
	}

	originalSize := file.Size()
	res, err := s.pool.Execute(ctx, &workerpool.TaskRequest{
		Op:           codec.OpConvert,
		Payload:      mediautil.NewBuffer(file.Data),
		SourceFormat: source,
		TargetFormat: target,
		Options:      opts,
		OnProgress:   onProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("convert %s to %s: %w", file.Name, target, err)
	}

	s.logger.Debug("conversion finished",
		zap.String("file", file.Name),
		zap.String("source", source.String()),
		zap.String("target", target.String()),
		zap.Int64("bytes_in", originalSize),
		zap.Int("bytes_out", len(res.Payload)))

	return &Result{
		Buffer:             res.Payload,
		TargetFormat:       target,
		MIMEType:           target.MIMEType(),
		Filename:           mediautil.DerivedName(file.Name, target),
		Dimensions:         res.Dimensions,
		OriginalSizeBytes:  originalSize,
		ConvertedSizeBytes: int64(len(res.Payload)),
	}, nil
}

// BatchProgressFunc reports coarse batch progress: the current file's name
// plus how many of the batch have finished.
type BatchProgressFunc func(filename string, done, total int)

// ConvertSequential converts files one at a time, stopping at the first
// failure.
func (s *Service) ConvertSequential(ctx context.Context, files []*mediautil.File, target mediautil.Format, opts codec.Options, onProgress BatchProgressFunc) ([]*Result, error) {
	results := make([]*Result, 0, len(files))
	for i, f := range files {
		if onProgress != nil {
			onProgress(f.Name, i, len(files))
		}
		res, err := s.Convert(ctx, f, target, opts, nil)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
		if onProgress != nil {
			onProgress(f.Name, i+1, len(files))
		}
	}
	return results, nil
}

// ConvertParallel fires all conversions at once and fails fast on the first
// error. Concurrency is bounded only by the pool itself; resilient per-item
// handling lives a layer up in the batch manager.
func (s *Service) ConvertParallel(ctx context.Context, files []*mediautil.File, target mediautil.Format, opts codec.Options, onProgress BatchProgressFunc) ([]*Result, error) {
	results := make([]*Result, len(files))
	errs := make([]error, len(files))
	var done int64
	var wg sync.WaitGroup

	for i, f := range files {
		wg.Add(1)
		go func(i int, f *mediautil.File) {
			defer wg.Done()
			res, err := s.Convert(ctx, f, target, opts, nil)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = res
			if onProgress != nil {
				onProgress(f.Name, int(atomic.AddInt64(&done, 1)), len(files))
			}
		}(i, f)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
