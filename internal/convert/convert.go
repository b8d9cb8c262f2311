package convert

import (
	"context"
	"fmt"
	"log/slog"

	"bayloe/internal/document"
	"bayloe/internal/format"
	"bayloe/internal/logging"
	"bayloe/internal/raster"
	"bayloe/internal/services"
)

// Decoder is the isolated HEIC decoder, implemented by *sandbox.Host.
type Decoder interface {
	Decode(ctx context.Context, src []byte, encoding string, quality float64) ([]byte, error)
}

// Request describes one conversion.
type Request struct {
	Name   string
	Data   []byte
	Format format.Format
}

// Result is a finished conversion.
type Result struct {
	Data   []byte
	Format format.Format
	MIME   string
	Width  int
	Height int
}

// Converter routes requests to the HEIC or native path.
type Converter struct {
	heic    Decoder
	quality float64
	logger  *slog.Logger
}

// New builds a Converter. quality <= 0 selects raster.DefaultQuality.
func New(heic Decoder, quality float64, logger *slog.Logger) *Converter {
	if quality <= 0 {
		quality = raster.DefaultQuality
	}
	return &Converter{
		heic:    heic,
		quality: quality,
		logger:  logging.NewComponentLogger(logger, "converter"),
	}
}

// Convert produces req.Format output for req.Data.
func (c *Converter) Convert(ctx context.Context, req Request) (Result, error) {
	target := req.Format
	if !target.Valid() {
		return Result{}, services.Wrap(services.ErrValidation, "converter", "convert", fmt.Sprintf("unsupported format %q", target), nil)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	encoding := target.Encoding()
	logger := logging.WithContext(ctx, c.logger)

	var (
		raw  raster.Result
		path string
		err  error
	)
	if format.IsHEIC(req.Name) {
		path = "heic"
		raw, err = c.decodeHEIC(services.WithStage(ctx, "heic"), req.Data, encoding)
	} else {
		path = "native"
		raw, err = raster.Transcode(req.Data, encoding, c.quality)
	}
	if err != nil {
		return Result{}, err
	}
	logger.Debug("raster ready",
		logging.String("path", path),
		logging.String("source_codec", raw.Source),
		logging.String("encoding", encoding),
		logging.Int("width", raw.Width),
		logging.Int("height", raw.Height),
		logging.Int("bytes", len(raw.Data)))

	data := raw.Data
	if target == format.PDF {
		data, err = document.Wrap(raw.Data, raw.Width, raw.Height)
		if err != nil {
			return Result{}, err
		}
	}
	return Result{
		Data:   data,
		Format: target,
		MIME:   target.MIME(),
		Width:  raw.Width,
		Height: raw.Height,
	}, nil
}

func (c *Converter) decodeHEIC(ctx context.Context, src []byte, encoding string) (raster.Result, error) {
	if c.heic == nil {
		return raster.Result{}, services.Wrap(services.ErrSandbox, "converter", "heic", "no decoder configured", nil)
	}
	data, err := c.heic.Decode(ctx, src, encoding, c.quality)
	if err != nil {
		return raster.Result{}, err
	}
	w, h, err := raster.Dimensions(data)
	if err != nil {
		return raster.Result{}, err
	}
	return raster.Result{Data: data, Width: w, Height: h, Source: "heic"}, nil
}
