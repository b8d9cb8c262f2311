package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	_ "image/gif"

	"github.com/chai2010/webp"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"bayloe/internal/format"
	"bayloe/internal/services"
)

// DefaultQuality is the lossy encoder quality used by every conversion.
const DefaultQuality = 0.9

const (
	// MaxDimension caps either side of a decoded image.
	MaxDimension = 32768
	// MaxPixels caps width*height of a decoded image (64 MP).
	MaxPixels = 64 * 1024 * 1024
)

// Image is a decoded picture together with its source codec name.
type Image struct {
	image.Image
	Codec string
}

// Result carries encoded bytes and the pixel size they describe. Source
// names the codec the input was decoded with.
type Result struct {
	Data   []byte
	Width  int
	Height int
	Source string
}

// CheckBounds rejects dimensions outside the decode limits.
func CheckBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", width, height)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("dimensions %dx%d exceed %d px limit", width, height, MaxDimension)
	}
	if int64(width)*int64(height) > MaxPixels {
		return fmt.Errorf("%dx%d exceeds %d pixel limit", width, height, MaxPixels)
	}
	return nil
}

// Dimensions reads the pixel size from an encoded image header.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, services.Wrap(services.ErrDecode, "raster", "dimensions", "unrecognized image data", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Decode validates the header and decodes src.
func Decode(src []byte) (*Image, error) {
	if len(src) == 0 {
		return nil, services.Wrap(services.ErrDecode, "raster", "decode", "empty input", nil)
	}
	cfg, codec, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "raster", "decode", "unrecognized image data", err)
	}
	if err := CheckBounds(cfg.Width, cfg.Height); err != nil {
		return nil, services.Wrap(services.ErrDecode, "raster", "decode", codec, err)
	}
	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, services.Wrap(services.ErrDecode, "raster", "decode", codec, err)
	}
	return &Image{Image: img, Codec: codec}, nil
}

// Draw paints img onto a fresh RGBA surface of the same size, anchored at
// the origin.
func Draw(img image.Image) *image.RGBA {
	b := img.Bounds()
	surface := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(surface, surface.Bounds(), img, b.Min, draw.Src)
	return surface
}

// Encode serializes img using encoding (image/png, image/jpeg, image/webp).
// quality applies to the lossy encoders and is clamped to [0, 1].
func Encode(img image.Image, encoding string, quality float64) ([]byte, error) {
	q := clampQuality(quality)
	var buf bytes.Buffer
	var err error
	switch encoding {
	case format.EncodingPNG:
		err = png.Encode(&buf, img)
	case format.EncodingJPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: int(math.Round(q * 100))})
	case format.EncodingWebP:
		err = webp.Encode(&buf, img, &webp.Options{Quality: float32(q * 100)})
	default:
		return nil, services.Wrap(services.ErrEncode, "raster", "encode", fmt.Sprintf("unsupported encoding %q", encoding), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrEncode, "raster", "encode", encoding, err)
	}
	if buf.Len() == 0 {
		return nil, services.Wrap(services.ErrEncode, "raster", "encode", encoding+" encoder produced no data", nil)
	}
	return buf.Bytes(), nil
}

// Transcode runs Decode, Draw and Encode in sequence. The surface is dropped
// before returning.
func Transcode(src []byte, encoding string, quality float64) (Result, error) {
	img, err := Decode(src)
	if err != nil {
		return Result{}, err
	}
	surface := Draw(img)
	data, err := Encode(surface, encoding, quality)
	if err != nil {
		return Result{}, err
	}
	b := surface.Bounds()
	return Result{Data: data, Width: b.Dx(), Height: b.Dy(), Source: img.Codec}, nil
}

func clampQuality(q float64) float64 {
	switch {
	case math.IsNaN(q) || q <= 0:
		return DefaultQuality
	case q > 1:
		return 1
	default:
		return q
	}
}
