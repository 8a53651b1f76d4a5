package normalize

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"snapcaption/internal/domain"
)

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestNormalizeAlwaysProducesTargetResolution(t *testing.T) {
	n := New(256, 90)
	shapes := []struct{ w, h int }{
		{256, 256},
		{4000, 3000},
		{3000, 4000},
		{1920, 200},
		{200, 1920},
		{257, 255},
	}
	for _, shape := range shapes {
		raw := encodeJPEG(t, solidImage(shape.w, shape.h, color.RGBA{R: 40, G: 120, B: 200, A: 255}))
		out, err := n.Normalize(raw)
		if err != nil {
			t.Fatalf("Normalize(%dx%d) error: %v", shape.w, shape.h, err)
		}
		w, h := decodeDims(t, out.Bytes)
		if w != 256 || h != 256 {
			t.Fatalf("Normalize(%dx%d) produced %dx%d, want 256x256", shape.w, shape.h, w, h)
		}
	}
}

func TestNormalizeKeepsCenterMarker(t *testing.T) {
	n := New(240, 90)
	blue := color.RGBA{R: 10, G: 10, B: 220, A: 255}
	red := color.RGBA{R: 230, G: 10, B: 10, A: 255}

	shapes := []struct{ w, h int }{
		{600, 600},
		{1800, 600},
		{600, 1800},
		{601, 599},
	}
	for _, shape := range shapes {
		img := solidImage(shape.w, shape.h, blue)
		// Marker block covering the central sixth of the shorter side so it
		// survives resampling and JPEG loss.
		size := shape.w
		if shape.h < size {
			size = shape.h
		}
		marker := size / 6
		cx, cy := shape.w/2, shape.h/2
		draw.Draw(img, image.Rect(cx-marker/2, cy-marker/2, cx+marker/2, cy+marker/2),
			&image.Uniform{C: red}, image.Point{}, draw.Src)

		out, err := n.Normalize(encodeJPEG(t, img))
		if err != nil {
			t.Fatalf("Normalize(%dx%d) error: %v", shape.w, shape.h, err)
		}
		decoded, _, err := image.Decode(bytes.NewReader(out.Bytes))
		if err != nil {
			t.Fatalf("decode output: %v", err)
		}
		r, _, b, _ := decoded.At(120, 120).RGBA()
		if r <= b {
			t.Fatalf("Normalize(%dx%d): center pixel not marker-colored (r=%d b=%d)", shape.w, shape.h, r, b)
		}
	}
}

func TestNormalizeIsDimensionFixedPoint(t *testing.T) {
	n := New(200, 90)
	raw := encodePNG(t, solidImage(900, 500, color.RGBA{R: 90, G: 160, B: 70, A: 255}))

	first, err := n.Normalize(raw)
	if err != nil {
		t.Fatalf("first Normalize error: %v", err)
	}
	second, err := n.Normalize(first.Bytes)
	if err != nil {
		t.Fatalf("second Normalize error: %v", err)
	}
	w, h := decodeDims(t, second.Bytes)
	if w != 200 || h != 200 {
		t.Fatalf("re-normalized image is %dx%d, want 200x200", w, h)
	}
}

func TestNormalizeDataURIAndBase64(t *testing.T) {
	n := New(64, 90)
	out, err := n.Normalize(encodePNG(t, solidImage(128, 96, color.White)))
	if err != nil {
		t.Fatalf("Normalize error: %v", err)
	}
	if out.MIME != "image/jpeg" {
		t.Fatalf("MIME = %q, want image/jpeg", out.MIME)
	}
	if !strings.HasPrefix(out.DataURI, "data:image/jpeg;base64,") {
		t.Fatalf("DataURI has wrong prefix: %.40s", out.DataURI)
	}
	if out.DataURI != "data:image/jpeg;base64,"+out.Base64 {
		t.Fatal("DataURI payload does not match Base64 field")
	}
}

func TestNormalizeRejectsUndecodableInput(t *testing.T) {
	n := New(0, 0)
	_, err := n.Normalize([]byte("definitely not an image"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !errors.Is(err, domain.ErrDecodeFailed) {
		t.Fatalf("error = %v, want ErrDecodeFailed", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	n := New(0, 0)
	if n.TargetSize() != DefaultTargetSize {
		t.Fatalf("TargetSize = %d, want %d", n.TargetSize(), DefaultTargetSize)
	}
}
