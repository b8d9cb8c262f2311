package raster_test

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"testing"

	"bayloe/internal/format"
	"bayloe/internal/raster"
	"bayloe/internal/services"
	"bayloe/internal/testsupport"
)

func TestTranscodeAcrossCodecs(t *testing.T) {
	inputs := map[string][]byte{
		"png":  testsupport.PNG(t, 40, 20),
		"jpeg": testsupport.JPEG(t, 40, 20),
		"gif":  testsupport.GIF(t, 40, 20),
		"webp": testsupport.WebP(t, 40, 20),
	}
	targets := []struct {
		encoding string
		codec    string
	}{
		{format.EncodingPNG, "png"},
		{format.EncodingJPEG, "jpeg"},
		{format.EncodingWebP, "webp"},
	}

	for name, src := range inputs {
		for _, target := range targets {
			t.Run(name+"->"+target.codec, func(t *testing.T) {
				res, err := raster.Transcode(src, target.encoding, raster.DefaultQuality)
				if err != nil {
					t.Fatalf("Transcode: %v", err)
				}
				if res.Width != 40 || res.Height != 20 {
					t.Fatalf("unexpected size %dx%d", res.Width, res.Height)
				}
				if res.Source != name {
					t.Fatalf("source codec = %q, want %q", res.Source, name)
				}
				cfg, codec, err := image.DecodeConfig(bytes.NewReader(res.Data))
				if err != nil {
					t.Fatalf("decode output: %v", err)
				}
				if codec != target.codec {
					t.Fatalf("expected %s output, got %s", target.codec, codec)
				}
				if cfg.Width != 40 || cfg.Height != 20 {
					t.Fatalf("output header %dx%d", cfg.Width, cfg.Height)
				}
			})
		}
	}
}

func TestDecodeRejectsCorruptInput(t *testing.T) {
	_, err := raster.Decode(testsupport.Corrupt())
	if !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if _, err := raster.Decode(nil); !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected ErrDecode for empty input, got %v", err)
	}
}

func TestDecodeEnforcesDimensionLimit(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, raster.MaxDimension+1, 1))); err != nil {
		t.Fatalf("encode oversized fixture: %v", err)
	}
	if _, err := raster.Decode(buf.Bytes()); !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected oversized image to be rejected, got %v", err)
	}
}

func TestCheckBounds(t *testing.T) {
	cases := []struct {
		w, h int
		ok   bool
	}{
		{1, 1, true},
		{raster.MaxDimension, 1, true},
		{0, 10, false},
		{raster.MaxDimension + 1, 1, false},
		{8193, 8193, false},
	}
	for _, tc := range cases {
		err := raster.CheckBounds(tc.w, tc.h)
		if (err == nil) != tc.ok {
			t.Fatalf("CheckBounds(%d, %d) = %v, want ok=%v", tc.w, tc.h, err, tc.ok)
		}
	}
}

func TestEncodeUnsupportedEncoding(t *testing.T) {
	_, err := raster.Encode(testsupport.Gradient(2, 2), "image/avif", raster.DefaultQuality)
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestDrawNormalizesOrigin(t *testing.T) {
	src := testsupport.Gradient(10, 10).SubImage(image.Rect(5, 5, 10, 10))
	surface := raster.Draw(src)
	if surface.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Fatalf("unexpected surface bounds %v", surface.Bounds())
	}
	if surface.RGBAAt(0, 0) != testsupport.Gradient(10, 10).RGBAAt(5, 5) {
		t.Fatal("expected surface origin to match source min point")
	}
}

func TestDimensions(t *testing.T) {
	w, h, err := raster.Dimensions(testsupport.JPEG(t, 200, 100))
	if err != nil {
		t.Fatalf("Dimensions: %v", err)
	}
	if w != 200 || h != 100 {
		t.Fatalf("got %dx%d", w, h)
	}
}
