package imageutil

import (
	"bytes"

	"github.com/disintegration/imaging"
)

const (
	// MinDimension rejects thumbnails and tracking pixels.
	MinDimension = 100
	// MaxDimension is the largest side kept after normalization.
	MaxDimension = 2048

	jpegQuality = 85
)

// IsValid reports whether b decodes to an image of usable size.
func IsValid(b []byte) bool {
	img, err := imaging.Decode(bytes.NewReader(b))
	if err != nil {
		return false
	}
	bounds := img.Bounds()
	return bounds.Dx() >= MinDimension && bounds.Dy() >= MinDimension
}

// Normalize re-encodes b as JPEG, downscaling so that neither side
// exceeds MaxDimension. On any decode or encode failure the original
// bytes are returned unchanged.
func Normalize(b []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(b))
	if err != nil {
		return b
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxDimension || bounds.Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return b
	}
	return buf.Bytes()
}
