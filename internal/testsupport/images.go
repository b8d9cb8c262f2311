// Package testsupport builds fixtures shared by package tests: configs with
// isolated directories and small synthetic images in every input codec.
package testsupport

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
)

// Gradient returns a w x h image with a horizontal red ramp and an opaque
// blue channel.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := uint8(0)
			if w > 1 {
				r = uint8(x * 255 / (w - 1))
			}
			img.Set(x, y, color.RGBA{R: r, G: uint8(y % 256), B: 200, A: 255})
		}
	}
	return img
}

// PNG encodes a gradient of the given size.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		t.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a gradient of the given size.
func JPEG(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

// GIF encodes a gradient of the given size.
func GIF(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := gif.Encode(&buf, Gradient(w, h), nil); err != nil {
		t.Fatalf("encode gif fixture: %v", err)
	}
	return buf.Bytes()
}

// WebP encodes a lossless gradient of the given size.
func WebP(t testing.TB, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := webp.Encode(&buf, Gradient(w, h), &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("encode webp fixture: %v", err)
	}
	return buf.Bytes()
}

// Corrupt returns bytes no decoder accepts.
func Corrupt() []byte {
	return []byte("this is not an image")
}
