package mediautil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProbeDimensions(t *testing.T) {
	data := encodePNG(t, 64, 48)

	dims, err := ProbeDimensions(data)
	if err != nil {
		t.Fatalf("ProbeDimensions returned error: %v", err)
	}
	if dims.Width != 64 || dims.Height != 48 {
		t.Fatalf("dimensions = %dx%d, want 64x48", dims.Width, dims.Height)
	}
}

func TestProbeDimensionsRejectsVideo(t *testing.T) {
	if _, err := ProbeDimensions(ftypHeader("isom")); err == nil {
		t.Fatal("expected error for video container")
	}
}

func TestProbeDimensionsUnknownFormat(t *testing.T) {
	if _, err := ProbeDimensions([]byte("definitely not an image")); err == nil {
		t.Fatal("expected error for unknown payload")
	}
}
