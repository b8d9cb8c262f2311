// Package heic decodes HEIC/HEIF images inside the sandbox worker.
//
// The decoder links libde265 through cgo and is not memory safe, which is why
// it only ever runs in a child process behind internal/sandbox.
package heic

import (
	"bytes"
	"errors"

	"github.com/jdeng/goheif"

	"bayloe/internal/raster"
)

// Decoder implements sandbox.Backend.
type Decoder struct{}

// Decode reads a HEIC image and re-encodes its primary picture.
func (Decoder) Decode(data []byte, encoding string, quality float64) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("heic: empty input")
	}
	cfg, err := goheif.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := raster.CheckBounds(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	img, err := goheif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return raster.Encode(raster.Draw(img), encoding, quality)
}
