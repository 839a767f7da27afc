package mediautil

import (
	"fmt"
	"strings"
)

// Format identifies a supported media container.
type Format string

const (
	FormatUnknown Format = ""
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatWebP    Format = "webp"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatAVIF    Format = "avif"
	FormatHEIC    Format = "heic"
	FormatMP4     Format = "mp4"
	FormatWebM    Format = "webm"
)

var (
	jpegSig   = []byte{0xff, 0xd8, 0xff}
	pngSig    = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	gif87Sig  = []byte("GIF87a")
	gif89Sig  = []byte("GIF89a")
	bmpSig    = []byte{0x42, 0x4d}
	tiffSigLE = []byte{0x49, 0x49, 0x2a, 0x00}
	tiffSigBE = []byte{0x4d, 0x4d, 0x00, 0x2a}
	riffSig   = []byte("RIFF")
	webpSig   = []byte("WEBP")
	ebmlSig   = []byte{0x1a, 0x45, 0xdf, 0xa3}
)

// DetectFormat sniffs the container format from the leading bytes of buf.
// It returns FormatUnknown with an error when no known signature matches.
func DetectFormat(buf []byte) (Format, error) {
	if len(buf) < 12 {
		return FormatUnknown, fmt.Errorf("buffer too short for format detection: %d bytes", len(buf))
	}

	switch {
	case hasPrefix(buf, jpegSig):
		return FormatJPEG, nil
	case hasPrefix(buf, pngSig):
		return FormatPNG, nil
	case hasPrefix(buf, gif87Sig), hasPrefix(buf, gif89Sig):
		return FormatGIF, nil
	case hasPrefix(buf, riffSig) && hasPrefix(buf[8:], webpSig):
		return FormatWebP, nil
	case hasPrefix(buf, bmpSig):
		return FormatBMP, nil
	case hasPrefix(buf, tiffSigLE), hasPrefix(buf, tiffSigBE):
		return FormatTIFF, nil
	case hasPrefix(buf, ebmlSig):
		return FormatWebM, nil
	}

	// ISO-BMFF containers carry their brand after the "ftyp" box header.
	if len(buf) >= 12 && string(buf[4:8]) == "ftyp" {
		brand := string(buf[8:12])
		switch {
		case strings.HasPrefix(brand, "avif"), strings.HasPrefix(brand, "avis"):
			return FormatAVIF, nil
		case strings.HasPrefix(brand, "heic"), strings.HasPrefix(brand, "heix"),
			strings.HasPrefix(brand, "mif1"):
			return FormatHEIC, nil
		default:
			return FormatMP4, nil
		}
	}

	return FormatUnknown, fmt.Errorf("no known signature matched")
}

// ParseFormat normalizes a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "gif":
		return FormatGIF, nil
	case "webp":
		return FormatWebP, nil
	case "bmp":
		return FormatBMP, nil
	case "tif", "tiff":
		return FormatTIFF, nil
	case "avif":
		return FormatAVIF, nil
	case "heic":
		return FormatHEIC, nil
	case "mp4":
		return FormatMP4, nil
	case "webm":
		return FormatWebM, nil
	default:
		return FormatUnknown, fmt.Errorf("unsupported format: %q", s)
	}
}

// MIMEType returns the MIME type for the format.
func (f Format) MIMEType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatGIF:
		return "image/gif"
	case FormatWebP:
		return "image/webp"
	case FormatBMP:
		return "image/bmp"
	case FormatTIFF:
		return "image/tiff"
	case FormatAVIF:
		return "image/avif"
	case FormatHEIC:
		return "image/heic"
	case FormatMP4:
		return "video/mp4"
	case FormatWebM:
		return "video/webm"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the canonical file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatUnknown:
		return ""
	default:
		return "." + string(f)
	}
}

// IsVideo reports whether the format is a video container.
func (f Format) IsVideo() bool {
	return f == FormatMP4 || f == FormatWebM
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}

func hasPrefix(buf, prefix []byte) bool {
	if len(buf) < len(prefix) {
		return false
	}
	for i := range prefix {
		if buf[i] != prefix[i] {
			return false
		}
	}
	return true
}
