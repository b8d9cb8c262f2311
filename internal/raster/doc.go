// Package raster is the native decode, draw, and re-encode path.
//
// Inputs are decoded with the registered image codecs (PNG, JPEG and GIF from
// the standard library; WebP, BMP and TIFF from golang.org/x/image) after a
// header-only dimension check, drawn onto an RGBA surface of their natural
// size, and encoded as PNG, JPEG, or lossy WebP. The same encoder is used by
// the sandboxed HEIC worker so both paths emit identical encodings.
package raster
