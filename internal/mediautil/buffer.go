package mediautil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBufferMoved is returned when a Buffer is read after its contents were
// handed off to an execution unit.
var ErrBufferMoved = errors.New("buffer contents already moved")

// Buffer wraps a binary payload with move semantics. Handing a payload to an
// execution unit transfers ownership: after Take the original holder must not
// touch the bytes again.
type Buffer struct {
	data  []byte
	moved bool
}

// NewBuffer wraps data in a Buffer. The Buffer takes ownership of the slice.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Take moves the payload out of the buffer. Subsequent calls to Take or Bytes
// fail with ErrBufferMoved.
func (b *Buffer) Take() ([]byte, error) {
	if b.moved {
		return nil, ErrBufferMoved
	}
	data := b.data
	b.data = nil
	b.moved = true
	return data, nil
}

// Bytes returns the payload without moving it.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.moved {
		return nil, ErrBufferMoved
	}
	return b.data, nil
}

// Len returns the payload length, or 0 once moved.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Moved reports whether the payload has been taken.
func (b *Buffer) Moved() bool {
	return b.moved
}

// File is an in-memory media file with its original name.
type File struct {
	Name string
	Data []byte
}

// ReadFile loads a media file from disk.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read media file: %w", err)
	}
	return &File{Name: filepath.Base(path), Data: data}, nil
}

// Size returns the file payload size in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// BaseName returns the file name without its extension.
func (f *File) BaseName() string {
	return strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
}

// DerivedName builds the output filename for the target format: the original
// base name with the target extension.
func DerivedName(original string, target Format) string {
	base := strings.TrimSuffix(original, filepath.Ext(original))
	if base == "" {
		base = "converted"
	}
	return base + target.Extension()
}
