package normalize

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"snapcaption/internal/domain"

	// Register decoders beyond the JPEG/PNG/GIF set imaging pulls in, so
	// webp uploads decode too.
	_ "golang.org/x/image/webp"
)

const (
	DefaultTargetSize = 1080
	DefaultQuality    = 90

	outputMIME = "image/jpeg"
)

// Image is the normalized output: a square JPEG exposed as raw bytes, as a
// base64 payload for the generation API, and as a data URI for the client.
type Image struct {
	Bytes   []byte
	Base64  string
	DataURI string
	MIME    string
	Size    int
}

// Normalizer turns arbitrary raster uploads into fixed-size square JPEGs.
// It is a pure transform: no network, no filesystem.
type Normalizer struct {
	targetSize int
	quality    int
}

// New returns a Normalizer for the given output resolution and JPEG quality.
// Out-of-range values fall back to the 1080px / quality-90 defaults.
func New(targetSize, quality int) *Normalizer {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Normalizer{targetSize: targetSize, quality: quality}
}

// Normalize decodes raw image bytes, applies EXIF orientation, center-crops to
// a square (odd-pixel remainder biased toward the top-left), resizes to the
// target resolution and re-encodes as JPEG.
func (n *Normalizer) Normalize(raw []byte) (*Image, error) {
	src, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	size := width
	if height < size {
		size = height
	}
	left := bounds.Min.X + (width-size)/2
	top := bounds.Min.Y + (height-size)/2

	square := imaging.Crop(src, image.Rect(left, top, left+size, top+size))
	resized := imaging.Resize(square, n.targetSize, n.targetSize, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(n.quality)); err != nil {
		return nil, fmt.Errorf("encode normalized image: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())
	return &Image{
		Bytes:   buf.Bytes(),
		Base64:  encoded,
		DataURI: "data:" + outputMIME + ";base64," + encoded,
		MIME:    outputMIME,
		Size:    n.targetSize,
	}, nil
}

// TargetSize reports the configured output resolution.
func (n *Normalizer) TargetSize() int {
	return n.targetSize
}
