// Package convert turns one source image into one output in the requested
// format.
//
// HEIC/HEIF sources (by file suffix) are decoded in the sandboxed worker;
// everything else takes the native raster path. PDF targets are built from a
// JPEG rendering of the image wrapped as a single page. The target format is
// captured when Convert is called, so later changes to an item's format do
// not affect a conversion already under way.
package convert
