package codec

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/MediaForgeNet/mediaforge-core/internal/mediautil"
)

// BackgroundRemover drives an external segmentation model through its CLI.
// The model itself is a black box; only the call contract matters here.
type BackgroundRemover struct {
	binary string
	device string
	ready  bool
}

// NewBackgroundRemover prepares an uninitialized remover. Initialize must be
// called before processing.
func NewBackgroundRemover(binary string) *BackgroundRemover {
	if binary == "" {
		binary = "rembg"
	}
	return &BackgroundRemover{binary: binary}
}

// Initialize locates the model binary and picks a device. GPU selection is
// platform-conditional: Apple silicon prefers the CPU path because the
// upstream model's MPS backend is unreliable there.
func (b *BackgroundRemover) Initialize(ctx context.Context) error {
	path, err := exec.LookPath(b.binary)
	if err != nil {
		return fmt.Errorf("background removal model not available: %w", err)
	}
	b.binary = path

	b.device = "gpu"
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		b.device = "cpu"
	}
	b.ready = true
	return nil
}

// ProcessOne removes the background from a single image, returning a PNG
// with alpha.
func (b *BackgroundRemover) ProcessOne(ctx context.Context, file *mediautil.File) (*mediautil.File, error) {
	if !b.ready {
		return nil, fmt.Errorf("background remover not initialized")
	}

	scratch, err := os.MkdirTemp("", "mediaforge-bg-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	input := filepath.Join(scratch, file.Name)
	output := filepath.Join(scratch, "out.png")
	if err := os.WriteFile(input, file.Data, 0o600); err != nil {
		return nil, fmt.Errorf("write scratch input: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.binary, "i", input, output)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("background removal failed: %w\n%s", err, out)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		return nil, fmt.Errorf("read scratch output: %w", err)
	}

	return &mediautil.File{
		Name: mediautil.DerivedName(file.Name, mediautil.FormatPNG),
		Data: data,
	}, nil
}

// ProcessMany runs all files in parallel with settle-all semantics: failed
// images are dropped from the result list rather than failing the call.
func (b *BackgroundRemover) ProcessMany(ctx context.Context, files []*mediautil.File) []*mediautil.File {
	results := make([]*mediautil.File, len(files))
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f *mediautil.File) {
			defer wg.Done()
			out, err := b.ProcessOne(ctx, f)
			if err == nil {
				results[i] = out
			}
		}(i, f)
	}
	wg.Wait()

	kept := make([]*mediautil.File, 0, len(files))
	for _, r := range results {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return kept
}
